package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"demoreel/internal/pipeline"
)

func TestWatchDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	if err := os.WriteFile(path, []byte("name: demo\n"), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	var calls atomic.Int32
	ran := make(chan struct{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pipeline.Watch(ctx, path, nil, func(context.Context) error {
			calls.Add(1)
			ran <- struct{}{}
			return errors.New("failures keep the watch alive")
		})
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an initial run")
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("name: demo\n# edit\n"), 0o644); err != nil {
			t.Fatalf("rewrite scenario: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a re-run after the change")
	}
	time.Sleep(3 * pipeline.WatchDebounce)
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 runs, got %d", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "demo.yaml")
	err := pipeline.Watch(context.Background(), path, nil, func(context.Context) error {
		t.Fatal("fn should not run")
		return nil
	})
	if err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
