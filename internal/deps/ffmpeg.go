package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe that belongs to the given ffmpeg.
//
// Static ffmpeg builds ship ffprobe alongside ffmpeg, and mixing versions from
// different installs produces confusing duration mismatches. An ffprobe
// sitting next to the resolved ffmpeg wins; otherwise the configured ffprobe
// command is returned unchanged for PATH lookup.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	ffprobeCommand = strings.TrimSpace(ffprobeCommand)
	if ffprobeCommand == "" {
		ffprobeCommand = "ffprobe"
	}
	if filepath.Base(ffprobeCommand) != ffprobeCommand {
		return ffprobeCommand
	}
	ffmpegCommand = strings.TrimSpace(ffmpegCommand)
	if ffmpegCommand == "" {
		return ffprobeCommand
	}
	resolved, err := exec.LookPath(ffmpegCommand)
	if err != nil {
		return ffprobeCommand
	}
	if candidate, ok := siblingBinary(resolved, ffprobeCommand); ok {
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return ffprobeCommand
}

func siblingBinary(path, name string) (string, bool) {
	if path == "" || name == "" {
		return "", false
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(path), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
