package mux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"demoreel/internal/config"
	"demoreel/internal/deps"
	"demoreel/internal/logging"
	"demoreel/internal/media/ffmpeg"
	"demoreel/internal/media/ffprobe"
	"demoreel/internal/services"
)

const stepName = "mux"

// Prober returns the duration of a media file in seconds.
type Prober func(ctx context.Context, path string) (float64, error)

// Request describes one mux.
type Request struct {
	Video  string
	Audio  string
	Output string
	// VideoFilter is applied to the video before reconciliation (crop).
	VideoFilter string
}

// Result reports the outcome of a mux.
type Result struct {
	Plan         Plan
	Output       string
	VideoSeconds float64
	AudioSeconds float64
	Args         []string
}

// Muxer combines a video with narration audio using ffmpeg.
type Muxer struct {
	logger   *slog.Logger
	ffmpeg   string
	run      ffmpeg.Runner
	probe    Prober
	options  Options
	encoding Encoding
}

// NewMuxer constructs a muxer from configuration.
func NewMuxer(cfg *config.Config, logger *slog.Logger) *Muxer {
	m := &Muxer{
		logger:   logging.NewComponentLogger(logger, "mux"),
		ffmpeg:   "ffmpeg",
		run:      ffmpeg.Exec,
		options:  DefaultOptions,
		encoding: DefaultEncoding,
	}
	ffprobeBin := "ffprobe"
	if cfg != nil {
		m.ffmpeg = cfg.FFmpegBinary()
		ffprobeBin = deps.ResolveFFprobe(m.ffmpeg, cfg.FFprobeBinary())
		m.options = Options{Fade: cfg.Mux.FadeSeconds, Tolerance: cfg.Mux.ToleranceSeconds}
		m.encoding = Encoding{
			VideoCodec:   cfg.Mux.VideoCodec,
			CRF:          cfg.Mux.CRF,
			Preset:       cfg.Mux.Preset,
			AudioCodec:   cfg.Mux.AudioCodec,
			AudioBitrate: cfg.Mux.AudioBitrate,
		}
	}
	m.probe = func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, ffprobeBin, path)
	}
	return m
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r ffmpeg.Runner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// WithProber allows injecting a duration prober for tests.
func (m *Muxer) WithProber(p Prober) {
	if m != nil && p != nil {
		m.probe = p
	}
}

// Options returns the reconciliation options in effect.
func (m *Muxer) Options() Options {
	return m.options
}

// Mux reconciles the durations of req.Video and req.Audio and writes the
// combined file to req.Output. Both inputs are checked before any tool runs.
// The output is written to a hidden sibling and renamed into place.
func (m *Muxer) Mux(ctx context.Context, req Request) (Result, error) {
	if m == nil {
		return Result{}, errors.New("muxer not initialized")
	}
	required := []struct{ label, value string }{
		{"video", req.Video},
		{"audio", req.Audio},
		{"output", req.Output},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return Result{}, services.Wrap(services.ErrValidation, stepName, "validate request", field.label+" path is required", nil)
		}
	}
	for _, input := range []string{req.Video, req.Audio} {
		info, err := os.Stat(input)
		if err != nil {
			return Result{}, services.Wrap(services.ErrNotFound, stepName, "check input", input, err)
		}
		if info.IsDir() {
			return Result{}, services.Wrap(services.ErrValidation, stepName, "check input", input+" is a directory", nil)
		}
	}

	logger := logging.WithContext(ctx, m.logger)

	videoSeconds, err := m.probe(ctx, req.Video)
	if err != nil {
		return Result{}, toolError("probe video", err)
	}
	audioSeconds, err := m.probe(ctx, req.Audio)
	if err != nil {
		return Result{}, toolError("probe audio", err)
	}

	plan := Reconcile(videoSeconds, audioSeconds, m.options)
	logger.Info("duration reconciliation",
		logging.String("mode", string(plan.Mode)),
		logging.Seconds("video_seconds", videoSeconds),
		logging.Seconds("audio_seconds", audioSeconds),
		logging.Seconds("pad_seconds", plan.PadSeconds),
		logging.Seconds("trim_seconds", plan.TrimSeconds),
		logging.Seconds("fade_seconds", plan.Fade),
	)

	dir := filepath.Dir(req.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stepName, "ensure output dir", dir, err)
	}
	tmpPath := filepath.Join(dir, ".partial-"+filepath.Base(req.Output))
	args := Args(plan, req.Video, req.Audio, tmpPath, req.VideoFilter, m.encoding)

	logger.Debug("executing ffmpeg", logging.String("args", strings.Join(args, " ")))
	if err := m.run(ctx, m.ffmpeg, args...); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, toolError("ffmpeg", err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stepName, "ffmpeg", "no output produced", err)
	}
	if err := os.Rename(tmpPath, req.Output); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, fmt.Errorf("mux: finalize output: %w", err)
	}

	logger.Info("muxed output written",
		logging.String(logging.FieldEventType, "mux_complete"),
		logging.String("output", req.Output),
		logging.Seconds("output_seconds", plan.OutputSeconds),
	)
	return Result{
		Plan:         plan,
		Output:       req.Output,
		VideoSeconds: videoSeconds,
		AudioSeconds: audioSeconds,
		Args:         args,
	}, nil
}

func toolError(op string, err error) error {
	if ffmpeg.IsMissingBinary(err) {
		return services.Wrap(services.ErrNotFound, stepName, op, "binary not found", err)
	}
	return services.Wrap(services.ErrExternalTool, stepName, op, "", err)
}
