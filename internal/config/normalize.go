package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeApp()
	c.normalizeNarration()
	c.normalizeBrowser()
	c.normalizeCapture()
	c.normalizeMux()
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeApp() {
	if value, ok := os.LookupEnv("DEMOREEL_APP_URL"); ok && strings.TrimSpace(value) != "" {
		c.App.URL = value
	}
	c.App.URL = strings.TrimSpace(c.App.URL)
	if c.App.URL == "" {
		c.App.URL = defaultAppURL
	}
	if c.App.ProbeTimeoutSeconds <= 0 {
		c.App.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeNarration() {
	c.Narration.Engine = strings.ToLower(strings.TrimSpace(c.Narration.Engine))
	if c.Narration.Engine == "" {
		c.Narration.Engine = defaultEngine(runtime.GOOS)
	}
	c.Narration.Voice = strings.TrimSpace(c.Narration.Voice)
	c.Narration.SegmentFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Narration.SegmentFormat), "."))
	if c.Narration.SegmentFormat == "" {
		c.Narration.SegmentFormat = defaultSegmentFormat(c.Narration.Engine)
	}
	c.Narration.OutputName = strings.TrimSpace(c.Narration.OutputName)
	if c.Narration.OutputName == "" {
		c.Narration.OutputName = defaultNarrationOutputName
	}
}

func (c *Config) normalizeBrowser() {
	c.Browser.Bin = strings.TrimSpace(c.Browser.Bin)
	if c.Browser.Bin == "" {
		if value, ok := os.LookupEnv("DEMOREEL_CHROME"); ok {
			c.Browser.Bin = strings.TrimSpace(value)
		}
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = defaultViewportWidth
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = defaultViewportHeight
	}
}

func (c *Config) normalizeCapture() {
	c.Capture.Display = strings.TrimSpace(c.Capture.Display)
	if c.Capture.Display == "" {
		c.Capture.Display = defaultCaptureDisplay(runtime.GOOS)
	}
	c.Capture.Crop = strings.TrimSpace(c.Capture.Crop)
}

func (c *Config) normalizeMux() {
	c.Mux.VideoCodec = strings.TrimSpace(c.Mux.VideoCodec)
	if c.Mux.VideoCodec == "" {
		c.Mux.VideoCodec = defaultVideoCodec
	}
	c.Mux.Preset = strings.TrimSpace(c.Mux.Preset)
	if c.Mux.Preset == "" {
		c.Mux.Preset = defaultPreset
	}
	c.Mux.AudioCodec = strings.TrimSpace(c.Mux.AudioCodec)
	if c.Mux.AudioCodec == "" {
		c.Mux.AudioCodec = defaultAudioCodec
	}
	c.Mux.AudioBitrate = strings.TrimSpace(c.Mux.AudioBitrate)
	if c.Mux.AudioBitrate == "" {
		c.Mux.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeArchive() error {
	var err error
	if strings.TrimSpace(c.Archive.Dir) == "" {
		c.Archive.Dir = defaultArchiveDir
	}
	if c.Archive.Dir, err = expandPath(c.Archive.Dir); err != nil {
		return fmt.Errorf("archive.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
