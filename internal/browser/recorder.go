package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"demoreel/internal/config"
	"demoreel/internal/logging"
	"demoreel/internal/services"
)

// FrameSource delivers encoded frames of a page until the returned stop
// function is called.
type FrameSource interface {
	StartFrames(ctx context.Context, onFrame func([]byte)) (stop func() error, err error)
}

var commandContext = exec.CommandContext

// Recorder turns a page screencast into a video file. The screencast only
// emits frames when the page repaints, so the latest frame is re-sent on a
// fixed tick to keep the recording in wall-clock time.
type Recorder struct {
	logger *slog.Logger
	ffmpeg string
	fps    int
}

// NewRecorder builds a Recorder from configuration.
func NewRecorder(cfg *config.Config, logger *slog.Logger) *Recorder {
	r := &Recorder{
		logger: logging.NewComponentLogger(logger, "browser"),
		ffmpeg: "ffmpeg",
		fps:    30,
	}
	if cfg != nil {
		r.ffmpeg = cfg.FFmpegBinary()
		if cfg.Browser.RecordFPS > 0 {
			r.fps = cfg.Browser.RecordFPS
		}
	}
	return r
}

// RecordArgs returns the ffmpeg arguments that encode a JPEG stream on
// stdin into output.
func RecordArgs(fps int, output string) []string {
	rate := strconv.Itoa(fps)
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "image2pipe",
		"-framerate", rate,
		"-c:v", "mjpeg",
		"-i", "-",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-r", rate,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		output,
	}
}

// Start begins recording src into output.
func (r *Recorder) Start(ctx context.Context, src FrameSource, output string) (*Recording, error) {
	if src == nil {
		return nil, errors.New("recorder: no frame source")
	}
	if strings.TrimSpace(output) == "" {
		return nil, services.Wrap(services.ErrValidation, stepName, "record", "output path is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stepName, "ensure output dir", filepath.Dir(output), err)
	}

	cmd := commandContext(ctx, r.ffmpeg, RecordArgs(r.fps, output)...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder: stdin pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, services.Wrap(services.ErrNotFound, stepName, "record", "ffmpeg not found", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stepName, "record", "", err)
	}

	rec := &Recording{
		cmd:      cmd,
		stdin:    stdin,
		stderr:   &stderr,
		output:   output,
		interval: time.Second / time.Duration(r.fps),
		logger:   logging.WithContext(ctx, r.logger),
		quit:     make(chan struct{}),
		pumped:   make(chan struct{}),
		done:     make(chan struct{}),
		started:  time.Now(),
	}
	go rec.reap()

	stopFrames, err := src.StartFrames(ctx, rec.setFrame)
	if err != nil {
		close(rec.quit)
		close(rec.pumped)
		_ = stdin.Close()
		<-rec.done
		return nil, services.Wrap(services.ErrExternalTool, stepName, "screencast", "", err)
	}
	rec.stopFrames = stopFrames
	go rec.pump()

	rec.logger.Info("browser recording started",
		logging.String(logging.FieldEventType, "recording_started"),
		logging.Int("fps", r.fps),
		logging.String("output", output),
	)
	return rec, nil
}

// Recording is a browser screencast being encoded by ffmpeg.
type Recording struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stderr     *strings.Builder
	output     string
	interval   time.Duration
	logger     *slog.Logger
	stopFrames func() error
	started    time.Time

	mu      sync.Mutex
	latest  []byte
	written int

	stopOnce sync.Once
	quit     chan struct{}
	pumped   chan struct{}
	done     chan struct{}
	err      error
}

func (r *Recording) setFrame(frame []byte) {
	if len(frame) == 0 {
		return
	}
	r.mu.Lock()
	r.latest = frame
	r.mu.Unlock()
}

func (r *Recording) pump() {
	defer close(r.pumped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			frame := r.latest
			r.mu.Unlock()
			if frame == nil {
				continue
			}
			if _, err := r.stdin.Write(frame); err != nil {
				return
			}
			r.written++
		}
	}
}

func (r *Recording) reap() {
	r.err = r.cmd.Wait()
	close(r.done)
}

// Output returns the file being recorded.
func (r *Recording) Output() string {
	return r.output
}

// Frames returns how many frames were sent to ffmpeg. Only meaningful after
// Stop.
func (r *Recording) Frames() int {
	return r.written
}

// Stop ends the screencast, flushes the encoder and waits for ffmpeg.
func (r *Recording) Stop() error {
	r.stopOnce.Do(func() {
		var stopErr error
		if r.stopFrames != nil {
			stopErr = r.stopFrames()
		}
		close(r.quit)
		<-r.pumped
		_ = r.stdin.Close()
		if r.Wait() != nil {
			return
		}
		if stopErr != nil {
			r.logger.Debug("screencast stop reported an error", logging.Error(stopErr))
		}
		r.logger.Info("browser recording finished",
			logging.String(logging.FieldEventType, "recording_complete"),
			logging.Int("frames", r.written),
			logging.Duration("elapsed", time.Since(r.started)),
			logging.String("output", r.output),
		)
	})
	return r.Wait()
}

// Wait blocks until ffmpeg exits.
func (r *Recording) Wait() error {
	<-r.done
	if r.err != nil {
		detail := strings.TrimSpace(r.stderr.String())
		if detail == "" {
			detail = "ffmpeg recording exited"
		}
		return services.Wrap(services.ErrExternalTool, stepName, "record", detail, r.err)
	}
	return nil
}
