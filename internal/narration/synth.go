package narration

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

const stepName = "narration"

// Prober returns the duration of a media file in seconds.
type Prober func(ctx context.Context, path string) (float64, error)

// Request describes one narration build.
type Request struct {
	// Segments are spoken in order.
	Segments []string
	// Dir receives segment files and the concat list.
	Dir string
	// Output is the concatenated narration file.
	Output string
	// Force re-synthesizes segments that already exist.
	Force bool
}

// Segment reports one synthesized segment.
type Segment struct {
	Index   int
	Text    string
	Path    string
	Seconds float64
	Reused  bool
}

// Result reports a finished narration.
type Result struct {
	Segments []Segment
	Output   string
	// TotalSeconds is the sum of the segment durations.
	TotalSeconds float64
	// OutputSeconds is the probed duration of the concatenated file.
	OutputSeconds float64
}

// Synthesizer produces narration audio with a TTS engine and ffmpeg.
type Synthesizer struct {
	logger *slog.Logger
	engine Engine
	ffmpeg string
	run    ffmpeg.Runner
	probe  Prober
}

// NewSynthesizer wires a synthesizer from configuration using engine.
func NewSynthesizer(cfg *config.Config, engine Engine, logger *slog.Logger) *Synthesizer {
	s := &Synthesizer{
		logger: logging.NewComponentLogger(logger, "narration"),
		engine: engine,
		ffmpeg: "ffmpeg",
		run:    ffmpeg.Exec,
	}
	ffprobeBin := "ffprobe"
	if cfg != nil {
		s.ffmpeg = cfg.FFmpegBinary()
		ffprobeBin = deps.ResolveFFprobe(s.ffmpeg, cfg.FFprobeBinary())
	}
	s.probe = func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, ffprobeBin, path)
	}
	return s
}

// WithCommandRunner allows injecting a custom ffmpeg runner for tests.
func (s *Synthesizer) WithCommandRunner(r ffmpeg.Runner) {
	if s != nil && r != nil {
		s.run = r
	}
}

// WithProber allows injecting a duration prober for tests.
func (s *Synthesizer) WithProber(p Prober) {
	if s != nil && p != nil {
		s.probe = p
	}
}

// Synthesize speaks every segment and concatenates them into req.Output.
// There are no retries; the first failing segment stops the build.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	if s == nil || s.engine == nil {
		return Result{}, errors.New("narration synthesizer not initialized")
	}
	if len(req.Segments) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, stepName, "validate", "no narration segments", nil)
	}
	texts := make([]string, len(req.Segments))
	for i, raw := range req.Segments {
		texts[i] = NormalizeText(raw)
		if texts[i] == "" {
			return Result{}, services.Wrap(services.ErrValidation, stepName, "validate", fmt.Sprintf("segment %d is empty", i+1), nil)
		}
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stepName, "ensure segment dir", req.Dir, err)
	}

	logger := logging.WithContext(ctx, s.logger)
	paths := make([]string, len(texts))
	reused := make([]bool, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dest := filepath.Join(req.Dir, SegmentName(i, s.engine.Fingerprint(), text, s.engine.Extension()))
		paths[i] = dest
		if !req.Force && fileExists(dest) {
			reused[i] = true
			logger.Debug("reusing narration segment", logging.Int("segment", i+1), logging.String("path", dest))
			continue
		}
		if err := s.synthesizeOne(ctx, text, dest); err != nil {
			return Result{}, err
		}
		logger.Debug("synthesized narration segment",
			logging.Int("segment", i+1),
			logging.String("engine", s.engine.Name()),
			logging.String("path", dest),
		)
	}

	result, err := s.Concat(ctx, paths, req.Output)
	if err != nil {
		return Result{}, err
	}
	for i := range result.Segments {
		result.Segments[i].Text = texts[i]
		result.Segments[i].Reused = reused[i]
	}
	logger.Info("narration ready",
		logging.String(logging.FieldEventType, "narration_complete"),
		logging.Int("segments", len(result.Segments)),
		logging.Seconds("total_seconds", result.TotalSeconds),
		logging.String("output", result.Output),
	)
	return result, nil
}

func (s *Synthesizer) synthesizeOne(ctx context.Context, text, dest string) error {
	textFile, err := os.CreateTemp(filepath.Dir(dest), ".text-*.txt")
	if err != nil {
		return fmt.Errorf("narration: stage text: %w", err)
	}
	textPath := textFile.Name()
	defer os.Remove(textPath)
	if _, err := textFile.WriteString(text + "\n"); err != nil {
		textFile.Close()
		return fmt.Errorf("narration: stage text: %w", err)
	}
	if err := textFile.Close(); err != nil {
		return fmt.Errorf("narration: stage text: %w", err)
	}

	if err := s.engine.Synthesize(ctx, textPath, dest); err != nil {
		_ = os.Remove(dest)
		if ffmpeg.IsMissingBinary(err) {
			return services.Wrap(services.ErrNotFound, stepName, s.engine.Name(), "binary not found", err)
		}
		return services.Wrap(services.ErrExternalTool, stepName, s.engine.Name(), "synthesize "+filepath.Base(dest), err)
	}
	if !fileExists(dest) {
		return services.Wrap(services.ErrExternalTool, stepName, s.engine.Name(), "no audio produced for "+filepath.Base(dest), nil)
	}
	return nil
}

// Concat joins the segment files into output with the ffmpeg concat demuxer
// and reports each segment's duration alongside the total.
func (s *Synthesizer) Concat(ctx context.Context, segments []string, output string) (Result, error) {
	if len(segments) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, stepName, "concat", "no segments", nil)
	}
	if strings.TrimSpace(output) == "" {
		return Result{}, services.Wrap(services.ErrValidation, stepName, "concat", "output path is required", nil)
	}
	for _, path := range segments {
		if !fileExists(path) {
			return Result{}, services.Wrap(services.ErrNotFound, stepName, "concat", path, os.ErrNotExist)
		}
	}

	result := Result{Output: output, Segments: make([]Segment, len(segments))}
	for i, path := range segments {
		seconds, err := s.probe(ctx, path)
		if err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, stepName, "probe segment", path, err)
		}
		result.Segments[i] = Segment{Index: i, Path: path, Seconds: seconds}
		result.TotalSeconds += seconds
	}

	absolute := make([]string, len(segments))
	for i, path := range segments {
		abs, err := filepath.Abs(path)
		if err != nil {
			return Result{}, fmt.Errorf("narration: resolve %s: %w", path, err)
		}
		absolute[i] = abs
	}
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, stepName, "ensure output dir", dir, err)
	}
	listPath := filepath.Join(dir, ".concat-"+strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))+".txt")
	if err := os.WriteFile(listPath, []byte(ffmpeg.ConcatList(absolute)), 0o644); err != nil {
		return Result{}, fmt.Errorf("narration: write concat list: %w", err)
	}
	defer os.Remove(listPath)

	args, err := ffmpeg.ConcatArgs(listPath, output)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, stepName, "concat", "", err)
	}
	if err := s.run(ctx, s.ffmpeg, args...); err != nil {
		if ffmpeg.IsMissingBinary(err) {
			return Result{}, services.Wrap(services.ErrNotFound, stepName, "concat", "ffmpeg not found", err)
		}
		return Result{}, services.Wrap(services.ErrExternalTool, stepName, "concat", "", err)
	}

	outSeconds, err := s.probe(ctx, output)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stepName, "probe output", output, err)
	}
	result.OutputSeconds = outSeconds
	return result, nil
}

// ResolveExisting returns the first of names that exists as a regular file.
// Relative names are resolved against dir.
func ResolveExisting(dir string, names ...string) (string, bool) {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, name)
		}
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
