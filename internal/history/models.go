package history

import (
	"strings"
	"time"
)

// Status represents the outcome of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusInvalid marks runs rejected before any tool ran: missing input
	// files, missing binaries, or an unreachable target.
	StatusInvalid Status = "invalid"
)

// ParseStatus normalizes a user supplied status filter.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusRunning:
		return StatusRunning, true
	case StatusSucceeded:
		return StatusSucceeded, true
	case StatusFailed:
		return StatusFailed, true
	case StatusInvalid:
		return StatusInvalid, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the run has finished.
func (s Status) IsTerminal() bool {
	return s != StatusRunning && s != ""
}

// Run is one recorded invocation of the pipeline.
type Run struct {
	ID           string
	Scenario     string
	ScenarioPath string
	Status       Status
	StartedAt    time.Time
	FinishedAt   time.Time

	OutputPath    string
	VideoSeconds  float64
	AudioSeconds  float64
	OutputSeconds float64
	MuxMode       string

	StepsOK      int
	StepsFailed  int
	StepsSkipped int

	ErrorMessage string
	// ReportJSON holds the browser step report as rendered by the pipeline.
	ReportJSON string
}

// Elapsed returns the wall-clock duration of a finished run.
func (r *Run) Elapsed() time.Duration {
	if r == nil || r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
