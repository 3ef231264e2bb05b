package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"demoreel/internal/logs"
)

func TestReadLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demoreel.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\npartial"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Read(path, logs.Options{Limit: 2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("expected offset before the partial line, got %d", offset)
	}
}

func TestReadMatchesRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demoreel.log")
	content := "run_id=aaa stage started\nrun_id=bbb stage started\nrun_id=aaa stage completed\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, _, err := logs.Read(path, logs.Options{Match: "run_id=aaa"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"run_id=aaa stage started", "run_id=aaa stage completed"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMissingFile(t *testing.T) {
	lines, offset, err := logs.Read(filepath.Join(t.TempDir(), "absent.log"), logs.Options{})
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestReadRejectsDirectory(t *testing.T) {
	if _, _, err := logs.Read(t.TempDir(), logs.Options{}); err == nil {
		t.Fatal("expected error for a directory")
	}
}

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demoreel.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Read(path, logs.Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	var (
		mu  sync.Mutex
		got []string
	)
	seen := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, "keep", func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			seen <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("drop me\nkeep later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-seen:
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not deliver the appended line")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"keep later"}, got); diff != "" {
		t.Fatalf("followed lines mismatch (-want +got):\n%s", diff)
	}
}
