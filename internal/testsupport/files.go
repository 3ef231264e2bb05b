package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// WriteFile creates path with size filler bytes (at least one), making
// parent directories as needed.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteMedia creates a placeholder media file whose fake ffprobe duration is
// seconds.
func WriteMedia(t testing.TB, path string, seconds float64) {
	t.Helper()
	WriteFile(t, path, 64)
	sidecar := strconv.FormatFloat(seconds, 'f', -1, 64)
	if err := os.WriteFile(path+".duration", []byte(sidecar), 0o644); err != nil {
		t.Fatalf("write duration sidecar: %v", err)
	}
}
