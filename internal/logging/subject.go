package logging

import "strings"

// FormatSubject builds the prefix shown in console output, for example
// "checkout run 1a2b3c4d (mux)". Run identifiers are shortened to eight
// characters; empty parts are dropped.
func FormatSubject(scenario, runID, step string) string {
	parts := make([]string, 0, 3)
	if scenario = strings.TrimSpace(scenario); scenario != "" {
		parts = append(parts, scenario)
	}
	if runID = strings.TrimSpace(runID); runID != "" {
		if len(runID) > 8 {
			runID = runID[:8]
		}
		parts = append(parts, "run "+runID)
	}
	if step = strings.TrimSpace(step); step != "" {
		if len(parts) > 0 {
			step = "(" + step + ")"
		}
		parts = append(parts, step)
	}
	return strings.Join(parts, " ")
}
