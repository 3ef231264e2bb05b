package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"demoreel/internal/browser"
	"demoreel/internal/capture"
	"demoreel/internal/services"
)

const stepName = "scenario"

// Mode selects how the video is captured.
type Mode string

const (
	// ModeBrowser records the page through the DevTools screencast.
	ModeBrowser Mode = "browser"
	// ModeScreen records the desktop with ffmpeg while the browser steps run.
	ModeScreen Mode = "screen"
)

// Scenario is one declarative demo video.
type Scenario struct {
	Name    string `yaml:"name"`
	Target  string `yaml:"target"`
	Capture Mode   `yaml:"capture"`
	// Duration is the minimum recording length. The capture keeps running
	// after the last step until it has elapsed.
	Duration Duration `yaml:"duration"`
	Display  string   `yaml:"display"`
	Crop     string   `yaml:"crop"`
	AutoCrop *bool    `yaml:"auto_crop"`

	Narration     []string `yaml:"narration"`
	NarrationFile string   `yaml:"narration_file"`

	Steps  []Step `yaml:"steps"`
	Output string `yaml:"output"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Step is the YAML form of a browser step.
type Step struct {
	Action   string   `yaml:"action"`
	Selector string   `yaml:"selector"`
	Text     string   `yaml:"text"`
	URL      string   `yaml:"url"`
	Value    string   `yaml:"value"`
	Wait     Duration `yaml:"wait"`
	Required bool     `yaml:"required"`
}

// Read reads and parses the scenario at path without validating it.
func Read(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stepName, "load", path, err)
		}
		return nil, services.Wrap(services.ErrConfiguration, stepName, "load", path, err)
	}
	return Parse(data, path)
}

// Load reads, parses and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	sc, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Parse decodes scenario YAML. Relative file references resolve against
// the directory of path. Unknown keys are rejected.
func Parse(data []byte, path string) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrValidation, stepName, "parse", "scenario is empty", nil)
		}
		return nil, services.Wrap(services.ErrValidation, stepName, "parse", path, err)
	}
	sc.Path = path
	sc.normalize()
	return &sc, nil
}

func (s *Scenario) normalize() {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" && s.Path != "" {
		base := filepath.Base(s.Path)
		s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	s.Target = strings.TrimSpace(s.Target)
	s.Capture = Mode(strings.ToLower(strings.TrimSpace(string(s.Capture))))
	if s.Capture == "" {
		s.Capture = ModeBrowser
	}
	s.Crop = strings.TrimSpace(s.Crop)
	s.NarrationFile = s.resolve(s.NarrationFile)
	if local := s.resolve(s.Target); local != "" && !isURL(s.Target) {
		s.Target = local
	}
	s.Output = strings.TrimSpace(s.Output)
}

// resolve makes a relative file reference absolute against the scenario
// directory.
func (s *Scenario) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || filepath.IsAbs(ref) || s.Path == "" {
		return ref
	}
	return filepath.Join(filepath.Dir(s.Path), ref)
}

// Validate checks the scenario for problems that would stop a run before
// any tool starts.
func (s *Scenario) Validate() error {
	var problems []string
	if s.Target == "" {
		problems = append(problems, "target is required")
	}
	switch s.Capture {
	case ModeBrowser, ModeScreen:
	default:
		problems = append(problems, fmt.Sprintf("capture must be %q or %q, got %q", ModeBrowser, ModeScreen, s.Capture))
	}
	if _, err := capture.ParseRect(s.Crop); err != nil {
		problems = append(problems, err.Error())
	}
	hasText := len(s.Narration) > 0
	if hasText && s.NarrationFile != "" {
		problems = append(problems, "set either narration or narration_file, not both")
	}
	if !hasText && s.NarrationFile == "" {
		problems = append(problems, "narration or narration_file is required")
	}
	for i, line := range s.Narration {
		if strings.TrimSpace(line) == "" {
			problems = append(problems, fmt.Sprintf("narration segment %d is empty", i+1))
		}
	}
	if s.Capture == ModeScreen && len(s.Steps) == 0 && s.Duration <= 0 {
		problems = append(problems, "a screen capture without steps needs a duration")
	}
	if _, err := s.BrowserSteps(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, stepName, "validate", s.label()+": "+strings.Join(problems, "; "), nil)
	}
	return nil
}

// BrowserSteps converts the YAML steps into browser steps.
func (s *Scenario) BrowserSteps() ([]browser.Step, error) {
	steps := make([]browser.Step, 0, len(s.Steps))
	for i, raw := range s.Steps {
		action, ok := browser.ParseAction(raw.Action)
		if !ok {
			return nil, fmt.Errorf("step %d: unknown action %q", i+1, raw.Action)
		}
		value := strings.TrimSpace(raw.Value)
		if action == browser.ActionNavigate && strings.TrimSpace(raw.URL) != "" {
			value = strings.TrimSpace(raw.URL)
		}
		if action == browser.ActionNavigate && !isURL(value) {
			value = s.resolve(value)
		}
		step := browser.Step{
			Action:   action,
			Selector: strings.TrimSpace(raw.Selector),
			Text:     raw.Text,
			Value:    value,
			Wait:     raw.Wait.Std(),
			Required: raw.Required,
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// CropRect returns the scenario crop, falling back to def when unset.
func (s *Scenario) CropRect(def string) (capture.Rect, error) {
	if s.Crop != "" {
		return capture.ParseRect(s.Crop)
	}
	return capture.ParseRect(def)
}

// WantsAutoCrop reports whether crop detection should run, falling back to
// def when the scenario does not say.
func (s *Scenario) WantsAutoCrop(def bool) bool {
	if s.AutoCrop != nil {
		return *s.AutoCrop
	}
	return def
}

// Slug returns a filesystem-friendly form of the scenario name.
func (s *Scenario) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s.Name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "demo"
	}
	return slug
}

// OutputPath returns where the finished video goes. Relative outputs are
// placed under outputDir.
func (s *Scenario) OutputPath(outputDir string) string {
	out := s.Output
	if out == "" {
		out = s.Slug() + ".mp4"
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(outputDir, out)
}

func (s *Scenario) label() string {
	if s.Name != "" {
		return s.Name
	}
	return "scenario"
}

func isURL(target string) bool {
	lower := strings.ToLower(strings.TrimSpace(target))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "about:")
}
