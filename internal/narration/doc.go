// Package narration synthesizes spoken narration for a demo.
//
// Each text segment is normalized, spoken by an OS text-to-speech engine
// (say on macOS, espeak-ng or espeak elsewhere) into its own file, and the
// files are concatenated with ffmpeg. Segment files are named after a hash of
// their text and voice settings, so unchanged segments are reused on the next
// run unless Force is set.
package narration
