package narration

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"demoreel/internal/config"
	"demoreel/internal/media/ffmpeg"
	"demoreel/internal/services"
)

// Engine turns a text file into one spoken audio file.
type Engine interface {
	Name() string
	// Extension is the audio file extension the engine writes, without a dot.
	Extension() string
	// Synthesize reads UTF-8 text from textPath and writes audio to dest.
	Synthesize(ctx context.Context, textPath, dest string) error
	// Fingerprint identifies the voice settings so cached segments are
	// invalidated when they change.
	Fingerprint() string
}

// NewEngine builds the configured engine. A missing binary is a
// precondition failure.
func NewEngine(cfg config.Narration, run ffmpeg.Runner) (Engine, error) {
	if run == nil {
		run = ffmpeg.Exec
	}
	switch cfg.Engine {
	case "say":
		bin, err := lookup("say")
		if err != nil {
			return nil, err
		}
		format := cfg.SegmentFormat
		if format == "" {
			format = "aiff"
		}
		return &sayEngine{bin: bin, voice: cfg.Voice, rate: cfg.Rate, format: format, run: run}, nil
	case "espeak-ng", "espeak":
		bin, err := lookup(cfg.Engine, "espeak-ng", "espeak")
		if err != nil {
			return nil, err
		}
		return &espeakEngine{bin: bin, voice: cfg.Voice, rate: cfg.Rate, run: run}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stepName, "select engine", fmt.Sprintf("unsupported engine %q", cfg.Engine), nil)
	}
}

func lookup(names ...string) (string, error) {
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, stepName, "locate engine", "text-to-speech binary "+strings.Join(names, " or ")+" not found", exec.ErrNotFound)
}

// sayEngine drives the macOS say command.
type sayEngine struct {
	bin    string
	voice  string
	rate   int
	format string
	run    ffmpeg.Runner
}

func (e *sayEngine) Name() string { return "say" }

func (e *sayEngine) Extension() string { return e.format }

func (e *sayEngine) Fingerprint() string {
	return "say|" + e.voice + "|" + strconv.Itoa(e.rate) + "|" + e.format
}

func (e *sayEngine) Synthesize(ctx context.Context, textPath, dest string) error {
	return e.run(ctx, e.bin, e.args(textPath, dest)...)
}

func (e *sayEngine) args(textPath, dest string) []string {
	var args []string
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}
	if e.rate > 0 {
		args = append(args, "-r", strconv.Itoa(e.rate))
	}
	if e.format == "wav" {
		args = append(args, "--file-format=WAVE", "--data-format=LEI16@22050")
	} else {
		args = append(args, "--file-format=AIFF")
	}
	return append(args, "-f", textPath, "-o", dest)
}

// espeakEngine drives espeak-ng or classic espeak. Both only write WAV.
type espeakEngine struct {
	bin   string
	voice string
	rate  int
	run   ffmpeg.Runner
}

func (e *espeakEngine) Name() string { return "espeak" }

func (e *espeakEngine) Extension() string { return "wav" }

func (e *espeakEngine) Fingerprint() string {
	return "espeak|" + e.voice + "|" + strconv.Itoa(e.rate)
}

func (e *espeakEngine) Synthesize(ctx context.Context, textPath, dest string) error {
	return e.run(ctx, e.bin, e.args(textPath, dest)...)
}

func (e *espeakEngine) args(textPath, dest string) []string {
	var args []string
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}
	if e.rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.rate))
	}
	return append(args, "-w", dest, "-f", textPath)
}
