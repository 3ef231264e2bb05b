package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"demoreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Directories are created so preflight directory checks pass.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "history.db")
	cfgVal.Archive.Dir = filepath.Join(base, "archive")
	cfgVal.Narration.Engine = "espeak-ng"
	cfgVal.Narration.SegmentFormat = "wav"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAppURL overrides the local application URL.
func WithAppURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.App.URL = url
	}
}

// WithStubbedBinaries writes no-op executables for the provided names and
// prepends them to PATH. If names is empty, the media tools and the default
// TTS engine are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "espeak-ng"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}
		PrependPath(b.t, binDir)
	}
}

// WithFakeMediaTools installs the scripted ffmpeg, ffprobe, and TTS fakes
// described in tools.go.
func WithFakeMediaTools() ConfigOption {
	return func(b *configBuilder) {
		InstallFakeTools(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

// PrependPath puts dir in front of PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
