// Package ffmpeg holds the command plumbing shared by every step that shells
// out to ffmpeg: the injectable Runner, the default Exec implementation, and
// concat demuxer helpers.
package ffmpeg
