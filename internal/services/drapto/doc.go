// Package drapto integrates the Drapto Go library for the two jobs demoreel
// hands it: AV1 archive encodes of finished videos and black-border crop
// detection on recordings.
//
// It exposes a Client interface, a Library implementation that calls Drapto
// directly, and a reporter adapter that translates Drapto's Reporter callbacks
// into ProgressUpdate values. Callers swap in fakes to avoid running the real
// encoder in tests.
package drapto
