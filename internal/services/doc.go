// Package services defines shared utilities consumed by the pipeline steps
// and their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that separate
//     precondition failures (missing file, tool, or setting) from failures
//     raised while a tool ran, and map them to exit codes and history
//     statuses.
//
// Use these helpers when wiring new step logic so error handling and
// observability stay uniform across the pipeline.
package services
