// Package mux combines a captured video with its narration.
//
// Reconcile is the pure decision: equal lengths (within tolerance) pass
// through, longer narration pads the video by fading the tail to black and
// holding the last frame, and a longer video is trimmed to the narration with
// a fade-out. FilterGraph and Args turn a Plan into ffmpeg arguments, and
// Muxer runs them after checking that both inputs exist.
package mux
