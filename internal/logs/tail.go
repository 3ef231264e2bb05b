package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PollInterval bounds how long Follow waits when no filesystem event arrives.
const PollInterval = time.Second

// Options selects which lines Read returns.
type Options struct {
	// Limit keeps only the last Limit matching lines. Zero keeps all.
	Limit int
	// Match keeps only lines containing this substring.
	Match string
}

// Read returns the last matching lines of path and the offset just past the
// last complete line. A missing file yields no lines and offset zero.
func Read(path string, opts Options) ([]string, int64, error) {
	if err := checkPath(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	lines, offset, err := readFrom(path, 0, opts.Match)
	if err != nil {
		return nil, 0, err
	}
	if opts.Limit > 0 && len(lines) > opts.Limit {
		lines = lines[len(lines)-opts.Limit:]
	}
	return lines, offset, nil
}

// Follow calls fn for every complete matching line appended to path after
// offset, until ctx ends. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, match string, fn func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create log watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch log directory: %w", err)
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	target := filepath.Clean(path)
	for {
		next, err := drain(path, offset, match, fn)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher: %w", err)
		}
	}
}

func drain(path string, offset int64, match string, fn func(string)) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	lines, next, err := readFrom(path, offset, match)
	if err != nil {
		return offset, err
	}
	for _, line := range lines {
		fn(line)
	}
	return next, nil
}

// readFrom returns complete lines after offset. A trailing line without a
// newline is left for the next read.
func readFrom(path string, offset int64, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, offset, nil
			}
			return nil, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if match == "" || strings.Contains(line, match) {
			lines = append(lines, line)
		}
	}
}

func checkPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("log path %q is a directory", path)
	}
	return nil
}
