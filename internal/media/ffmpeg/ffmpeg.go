package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes an external command. Tests substitute a fake that records
// the argument vector instead of spawning ffmpeg.
type Runner func(ctx context.Context, name string, args ...string) error

// stderrTail bounds how much ffmpeg chatter ends up in an error message.
const stderrTail = 2048

// Exec runs the command, discarding stdout and attaching the tail of stderr to
// any failure.
func Exec(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > stderrTail {
			detail = "..." + detail[len(detail)-stderrTail:]
		}
		if detail == "" {
			return fmt.Errorf("%s: %w", filepath.Base(name), err)
		}
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, detail)
	}
	return nil
}

// IsMissingBinary reports whether err came from a binary that could not be
// located or executed at all.
func IsMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// BaseArgs are prepended to every ffmpeg invocation.
func BaseArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
}

// ConcatList renders a concat demuxer list for the given files. Single quotes
// inside paths are escaped the way the demuxer expects.
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, path := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(path, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// AudioCodecFor selects an encoder from the output extension.
func AudioCodecFor(output string) (string, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp3":
		return "libmp3lame", nil
	case ".m4a", ".aac":
		return "aac", nil
	case ".wav":
		return "pcm_s16le", nil
	case ".aiff", ".aif":
		return "pcm_s16be", nil
	default:
		return "", fmt.Errorf("unsupported audio output extension %q", filepath.Ext(output))
	}
}

// ConcatArgs builds the argument vector that concatenates the files listed in
// listPath into output, re-encoding with the codec implied by output's
// extension.
func ConcatArgs(listPath, output string) ([]string, error) {
	codec, err := AudioCodecFor(output)
	if err != nil {
		return nil, err
	}
	args := BaseArgs()
	args = append(args, "-f", "concat", "-safe", "0", "-i", listPath, "-vn", "-c:a", codec)
	if codec == "libmp3lame" {
		args = append(args, "-q:a", "2")
	}
	return append(args, output), nil
}
