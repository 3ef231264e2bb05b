// Package pipeline runs a scenario end to end: narration synthesis, browser
// or screen capture, optional crop detection, muxing and the optional AV1
// archive. Each step writes its file before the next step reads it.
//
// A run holds an exclusive lock on the work directory and is recorded in the
// run history. Watch re-runs a scenario whenever its file changes.
package pipeline
