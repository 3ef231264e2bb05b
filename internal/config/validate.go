package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var cropPattern = regexp.MustCompile(`^\d+x\d+(\+\d+\+\d+)?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateApp(); err != nil {
		return err
	}
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateMux(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateApp() error {
	parsed, err := url.Parse(c.App.URL)
	if err != nil {
		return fmt.Errorf("app.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("app.url must be an http(s) URL, got %q", c.App.URL)
	}
	return nil
}

func (c *Config) validateNarration() error {
	switch c.Narration.Engine {
	case engineSay, engineEspeakNG, engineEspeak:
	default:
		return fmt.Errorf("narration.engine: unsupported value %q (want say, espeak-ng or espeak)", c.Narration.Engine)
	}
	switch c.Narration.SegmentFormat {
	case "", segmentFormatAIFF, segmentFormatWAV:
	default:
		return fmt.Errorf("narration.segment_format: unsupported value %q (want aiff or wav)", c.Narration.SegmentFormat)
	}
	if c.Narration.Rate < 0 {
		return errors.New("narration.rate must not be negative")
	}
	if strings.ContainsAny(c.Narration.OutputName, `/\`) {
		return errors.New("narration.output_name must be a file name, not a path")
	}
	return nil
}

func (c *Config) validateBrowser() error {
	return ensurePositiveMap(map[string]int{
		"browser.navigation_timeout_seconds": c.Browser.NavigationTimeoutSeconds,
		"browser.selector_timeout_seconds":   c.Browser.SelectorTimeoutSeconds,
		"browser.record_fps":                 c.Browser.RecordFPS,
	})
}

func (c *Config) validateCapture() error {
	if c.Capture.Framerate <= 0 {
		return errors.New("capture.framerate must be positive")
	}
	if c.Capture.Crop != "" && !cropPattern.MatchString(c.Capture.Crop) {
		return fmt.Errorf("capture.crop must look like WxH+X+Y, got %q", c.Capture.Crop)
	}
	return nil
}

func (c *Config) validateMux() error {
	if c.Mux.FadeSeconds < 0 {
		return errors.New("mux.fade_seconds must not be negative")
	}
	if c.Mux.ToleranceSeconds < 0 {
		return errors.New("mux.tolerance_seconds must not be negative")
	}
	if c.Mux.CRF < 0 || c.Mux.CRF > 51 {
		return errors.New("mux.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
