package config

import "runtime"

const (
	defaultWorkDir               = "~/.local/share/demoreel/work"
	defaultOutputDir             = "~/Videos/demoreel"
	defaultLogDir                = "~/.local/share/demoreel/logs"
	defaultHistoryDB             = "~/.local/share/demoreel/history.db"
	defaultArchiveDir            = "~/Videos/demoreel/archive"
	defaultAppURL                = "http://localhost:3000"
	defaultProbeTimeoutSeconds   = 5
	defaultNarrationRate         = 180
	defaultNarrationOutputName   = "narration.mp3"
	defaultViewportWidth         = 1920
	defaultViewportHeight        = 1080
	defaultNavigationTimeout     = 30
	defaultSelectorTimeout       = 5
	defaultRecordFPS             = 30
	defaultCaptureFramerate      = 30
	defaultFadeSeconds           = 1.0
	defaultToleranceSeconds      = 1.0
	defaultVideoCodec            = "libx264"
	defaultCRF                   = 23
	defaultPreset                = "medium"
	defaultAudioCodec            = "aac"
	defaultAudioBitrate          = "192k"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	engineSay                    = "say"
	engineEspeakNG               = "espeak-ng"
	engineEspeak                 = "espeak"
	segmentFormatAIFF            = "aiff"
	segmentFormatWAV             = "wav"
	defaultDarwinCaptureDisplay  = "1"
	defaultLinuxCaptureDisplay   = ":0.0"
	defaultWindowsCaptureDisplay = "desktop"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		App: App{
			URL:                 defaultAppURL,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Narration: Narration{
			Engine:     defaultEngine(runtime.GOOS),
			Rate:       defaultNarrationRate,
			OutputName: defaultNarrationOutputName,
		},
		Browser: Browser{
			Headless:                 true,
			ViewportWidth:            defaultViewportWidth,
			ViewportHeight:           defaultViewportHeight,
			NavigationTimeoutSeconds: defaultNavigationTimeout,
			SelectorTimeoutSeconds:   defaultSelectorTimeout,
			RecordFPS:                defaultRecordFPS,
		},
		Capture: Capture{
			Display:   defaultCaptureDisplay(runtime.GOOS),
			Framerate: defaultCaptureFramerate,
		},
		Mux: Mux{
			FadeSeconds:      defaultFadeSeconds,
			ToleranceSeconds: defaultToleranceSeconds,
			VideoCodec:       defaultVideoCodec,
			CRF:              defaultCRF,
			Preset:           defaultPreset,
			AudioCodec:       defaultAudioCodec,
			AudioBitrate:     defaultAudioBitrate,
		},
		Archive: Archive{
			Dir: defaultArchiveDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultEngine(goos string) string {
	if goos == "darwin" {
		return engineSay
	}
	return engineEspeakNG
}

func defaultSegmentFormat(engine string) string {
	if engine == engineSay {
		return segmentFormatAIFF
	}
	return segmentFormatWAV
}

func defaultCaptureDisplay(goos string) string {
	switch goos {
	case "darwin":
		return defaultDarwinCaptureDisplay
	case "windows":
		return defaultWindowsCaptureDisplay
	default:
		return defaultLinuxCaptureDisplay
	}
}
