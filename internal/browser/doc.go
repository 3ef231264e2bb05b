// Package browser drives Chrome through scripted steps and records the page.
//
// Runner executes Steps against a Page and collects a Report: optional steps
// that fail are logged and skipped past, while a failing required step stops
// the run. Driver launches Chrome with go-rod and Recorder encodes the
// DevTools screencast with ffmpeg.
package browser
