// Package preflight provides readiness checks run before any media tool is
// invoked.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll and CheckRequired before each run. A failure
//     is a precondition error: the run exits non-zero without touching ffmpeg.
//   - The CLI "demoreel status" command uses the individual checks to display
//     dependency and target health.
package preflight
