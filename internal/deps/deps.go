package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// Alternatives are tried in order when Command is not found.
	Alternatives []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, checkOne(req))
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

func checkOne(req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" && len(req.Alternatives) == 0 {
		status.Detail = "command not configured"
		return status
	}
	candidates := make([]string, 0, 1+len(req.Alternatives))
	if cmd != "" {
		candidates = append(candidates, cmd)
	}
	for _, alt := range req.Alternatives {
		if alt = strings.TrimSpace(alt); alt != "" {
			candidates = append(candidates, alt)
		}
	}
	for _, candidate := range candidates {
		if _, err := exec.LookPath(candidate); err == nil {
			status.Command = candidate
			status.Available = true
			return status
		}
	}
	if len(candidates) == 1 {
		status.Detail = fmt.Sprintf("binary %q not found", candidates[0])
	} else {
		status.Detail = fmt.Sprintf("none of %s found", strings.Join(candidates, ", "))
	}
	return status
}
