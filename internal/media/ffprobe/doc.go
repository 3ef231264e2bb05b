// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns the parsed Result; Duration is the
// shortcut the muxer and narration code use to read a file's length in
// seconds. Helper methods on Result expose stream counts, video dimensions,
// and frame rate.
package ffprobe
