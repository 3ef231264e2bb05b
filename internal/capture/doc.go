// Package capture records the desktop with ffmpeg's platform capture device
// (avfoundation, x11grab or gdigrab) and joins a background recording with a
// foreground interaction.
//
// A Process is ended with "q" on ffmpeg's stdin so the container trailer is
// written. DetectCrop finds black borders in finished recordings.
package capture
