package scenario

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sample_scenario.yaml
var sampleScenario string

// Sample returns an annotated example scenario.
func Sample() string {
	return sampleScenario
}

// CreateSample writes the example scenario to path, refusing to overwrite.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create scenario directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleScenario), 0o644)
}
