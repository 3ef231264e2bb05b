package browser

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"demoreel/internal/config"
	"demoreel/internal/testsupport"
)

type tickingSource struct {
	frame []byte
	every time.Duration
}

func (s tickingSource) StartFrames(ctx context.Context, onFrame func([]byte)) (func() error, error) {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.every)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				onFrame(s.frame)
			}
		}
	}()
	return func() error {
		close(stop)
		wg.Wait()
		return nil
	}, nil
}

func TestRecordArgs(t *testing.T) {
	want := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "image2pipe", "-framerate", "25", "-c:v", "mjpeg", "-i", "-",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2", "-r", "25",
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p", "out.mp4",
	}
	if diff := cmp.Diff(want, RecordArgs(25, "out.mp4")); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorderPumpsFramesIntoFFmpeg(t *testing.T) {
	defer goleak.VerifyNone(t)
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg requires a POSIX shell")
	}
	bin := t.TempDir()
	testsupport.WriteScript(t, filepath.Join(bin, "ffmpeg"), "#!/bin/sh\nfor last; do :; done\ncat > \"$last\"\n")
	testsupport.PrependPath(t, bin)

	cfg := config.Default()
	cfg.Browser.RecordFPS = 50
	output := filepath.Join(t.TempDir(), "browser.mp4")
	frame := []byte("JPEGFRAME")

	rec, err := NewRecorder(&cfg, nil).Start(context.Background(), tickingSource{frame: frame, every: 5 * time.Millisecond}, output)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := rec.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	if rec.Frames() == 0 {
		t.Fatal("expected frames to be written")
	}
	if got := bytes.Count(data, frame); got != rec.Frames() {
		t.Fatalf("expected %d frames in output, found %d", rec.Frames(), got)
	}
}

func TestRecorderRequiresOutput(t *testing.T) {
	if _, err := NewRecorder(nil, nil).Start(context.Background(), tickingSource{}, " "); err == nil {
		t.Fatal("expected error for empty output")
	}
}
