// Package logging assembles structured slog loggers and formatting helpers used
// across demoreel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code tags every line
// with the run identifier and step name. NewNop provides a discard logger for
// tests and wiring code that cannot fail.
package logging
