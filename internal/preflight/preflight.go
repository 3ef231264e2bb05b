package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"demoreel/internal/config"
	"demoreel/internal/deps"
	"demoreel/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Needs selects which parts of the pipeline a run will exercise.
type Needs struct {
	Narration bool
	Browser   bool
	Screen    bool
}

// All enables every requirement; used by the status command.
var All = Needs{Narration: true, Browser: true, Screen: true}

// RunAll executes the filesystem and target checks for one run. An empty
// target skips the reachability probe.
func RunAll(ctx context.Context, cfg *config.Config, target string) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if strings.TrimSpace(target) != "" {
		timeout := time.Duration(cfg.App.ProbeTimeoutSeconds) * time.Second
		results = append(results, CheckTarget(ctx, target, timeout))
	}
	return results
}

// FirstFailure converts the first failing result into a precondition error.
func FirstFailure(results []Result) error {
	for _, result := range results {
		if !result.Passed {
			return services.Wrap(services.ErrNotFound, "preflight", result.Name, result.Detail, nil)
		}
	}
	return nil
}

// Requirements lists the binaries needed for the selected pipeline parts.
func Requirements(cfg *config.Config, needs Needs) []deps.Requirement {
	ffmpeg := cfg.FFmpegBinary()
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for concatenation, capture, and muxing",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(ffmpeg, cfg.FFprobeBinary()),
			Description: "Required for duration probing",
		},
	}
	if needs.Narration {
		req := deps.Requirement{
			Name:        "Text-to-speech",
			Command:     cfg.Narration.Engine,
			Description: "Required for narration synthesis",
		}
		if cfg.Narration.Engine == "espeak-ng" {
			req.Alternatives = []string{"espeak"}
		}
		requirements = append(requirements, req)
	}
	if needs.Browser {
		requirements = append(requirements, deps.Requirement{
			Name:         "Chrome",
			Command:      cfg.Browser.Bin,
			Description:  "Browser automation; set browser.bin when Chrome is installed elsewhere",
			Optional:     true,
			Alternatives: []string{"google-chrome", "chromium", "chromium-browser"},
		})
	}
	return requirements
}

// CheckSystemDeps evaluates every binary dependency for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(Requirements(cfg, All))
}

// CheckRequired returns a precondition error naming every missing required
// binary for the selected pipeline parts.
func CheckRequired(cfg *config.Config, needs Needs) error {
	missing := deps.Missing(deps.CheckBinaries(Requirements(cfg, needs)))
	if len(missing) == 0 {
		return nil
	}
	details := make([]string, 0, len(missing))
	for _, status := range missing {
		details = append(details, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	return services.Wrap(services.ErrNotFound, "preflight", "binaries", "missing "+strings.Join(details, ", "), nil)
}
