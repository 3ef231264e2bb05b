package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// App describes the locally running web application being demoed.
type App struct {
	URL                 string `toml:"url"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
}

// Narration contains text-to-speech settings.
type Narration struct {
	Engine        string `toml:"engine"`
	Voice         string `toml:"voice"`
	Rate          int    `toml:"rate"`
	SegmentFormat string `toml:"segment_format"`
	OutputName    string `toml:"output_name"`
}

// Browser contains Chrome automation settings.
type Browser struct {
	Bin                      string `toml:"bin"`
	Headless                 bool   `toml:"headless"`
	ViewportWidth            int    `toml:"viewport_width"`
	ViewportHeight           int    `toml:"viewport_height"`
	NavigationTimeoutSeconds int    `toml:"navigation_timeout_seconds"`
	SelectorTimeoutSeconds   int    `toml:"selector_timeout_seconds"`
	RecordFPS                int    `toml:"record_fps"`
}

// Capture contains screen capture settings.
type Capture struct {
	Display   string `toml:"display"`
	Framerate int    `toml:"framerate"`
	Crop      string `toml:"crop"`
	AutoCrop  bool   `toml:"auto_crop"`
}

// Mux contains audio/video reconciliation and output encoding settings.
type Mux struct {
	FadeSeconds      float64 `toml:"fade_seconds"`
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
	VideoCodec       string  `toml:"video_codec"`
	CRF              int     `toml:"crf"`
	Preset           string  `toml:"preset"`
	AudioCodec       string  `toml:"audio_codec"`
	AudioBitrate     string  `toml:"audio_bitrate"`
}

// Archive contains the optional AV1 archive encode settings.
type Archive struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for demoreel.
//
// Configuration sections by subsystem:
//   - Paths: working, output and log directories plus the run history database
//   - App: the local web application and its reachability probe
//   - Narration: text-to-speech engine, voice and rate
//   - Browser: Chrome automation and screencast recording
//   - Capture: ffmpeg screen capture device settings
//   - Mux: duration reconciliation and output encoding
//   - Archive: optional AV1 archive copy of finished videos
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	App       App       `toml:"app"`
	Narration Narration `toml:"narration"`
	Browser   Browser   `toml:"browser"`
	Capture   Capture   `toml:"capture"`
	Mux       Mux       `toml:"mux"`
	Archive   Archive   `toml:"archive"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/demoreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("demoreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.HistoryDB); strings.TrimSpace(c.Paths.HistoryDB) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Dir) != "" {
		if err := os.MkdirAll(c.Archive.Dir, 0o755); err != nil {
			return fmt.Errorf("create archive directory %q: %w", c.Archive.Dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
