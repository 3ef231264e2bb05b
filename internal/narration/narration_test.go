package narration_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"demoreel/internal/config"
	"demoreel/internal/logging"
	"demoreel/internal/narration"
	"demoreel/internal/services"
	"demoreel/internal/testsupport"
)

func TestNormalizeText(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	got := narration.NormalizeText("  Cafe\u0301   opens\n\tat  nine ")
	if got != "Caf\u00e9 opens at nine" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
	if narration.NormalizeText(" \n\t ") != "" {
		t.Fatal("expected whitespace-only text to normalize to empty")
	}
}

func TestSegmentNameStable(t *testing.T) {
	a := narration.SegmentName(0, "say|Samantha|180|aiff", "Hello", "aiff")
	b := narration.SegmentName(0, "say|Samantha|180|aiff", "Hello", ".aiff")
	if a != b {
		t.Fatalf("expected stable names, got %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "seg-001-") || !strings.HasSuffix(a, ".aiff") || len(a) != len("seg-001-12345678.aiff") {
		t.Fatalf("unexpected segment name %q", a)
	}
	if c := narration.SegmentName(0, "say|Alex|180|aiff", "Hello", "aiff"); c == a {
		t.Fatal("expected voice change to change the segment name")
	}
}

func newSynth(t *testing.T, engineName string) (*narration.Synthesizer, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	cfg.Narration.Engine = engineName
	cfg.Narration.Voice = "en-us"
	engine, err := narration.NewEngine(cfg.Narration, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return narration.NewSynthesizer(cfg, engine, logging.NewNop()), cfg
}

func TestSynthesizeConcatenatesSegments(t *testing.T) {
	synth, cfg := newSynth(t, "espeak-ng")
	dir := filepath.Join(cfg.Paths.WorkDir, "segments")
	output := filepath.Join(cfg.Paths.WorkDir, "narration.mp3")

	segments := []string{"One.", "Two.", "Three.", "Four.", "Five."}
	result, err := synth.Synthesize(context.Background(), narration.Request{Segments: segments, Dir: dir, Output: output})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(result.Segments) != 5 {
		t.Fatalf("expected 5 segments, got %d", len(result.Segments))
	}
	if result.TotalSeconds != 15 {
		t.Fatalf("expected 15s total, got %v", result.TotalSeconds)
	}
	if math.Abs(result.OutputSeconds-result.TotalSeconds) > 0.1 {
		t.Fatalf("output duration %v should match segment sum %v", result.OutputSeconds, result.TotalSeconds)
	}
	for i, seg := range result.Segments {
		if seg.Reused {
			t.Fatalf("segment %d should be freshly synthesized", i)
		}
		if !strings.HasSuffix(seg.Path, ".wav") {
			t.Fatalf("espeak segments should be wav, got %s", seg.Path)
		}
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected narration output: %v", err)
	}

	again, err := synth.Synthesize(context.Background(), narration.Request{Segments: segments, Dir: dir, Output: output})
	if err != nil {
		t.Fatalf("second Synthesize returned error: %v", err)
	}
	for i, seg := range again.Segments {
		if !seg.Reused {
			t.Fatalf("segment %d should be reused on the second run", i)
		}
	}

	forced, err := synth.Synthesize(context.Background(), narration.Request{Segments: segments, Dir: dir, Output: output, Force: true})
	if err != nil {
		t.Fatalf("forced Synthesize returned error: %v", err)
	}
	if forced.Segments[0].Reused {
		t.Fatal("Force should re-synthesize segments")
	}
}

func TestSynthesizeSayUsesConfiguredFormat(t *testing.T) {
	synth, cfg := newSynth(t, "say")
	result, err := synth.Synthesize(context.Background(), narration.Request{
		Segments: []string{"Welcome to the demo."},
		Dir:      cfg.Paths.WorkDir,
		Output:   filepath.Join(cfg.Paths.WorkDir, "narration.m4a"),
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !strings.HasSuffix(result.Segments[0].Path, ".wav") {
		t.Fatalf("expected configured wav segments, got %s", result.Segments[0].Path)
	}
}

func TestSynthesizeRejectsEmptySegments(t *testing.T) {
	synth, cfg := newSynth(t, "espeak-ng")
	_, err := synth.Synthesize(context.Background(), narration.Request{
		Segments: []string{"fine", "   "},
		Dir:      cfg.Paths.WorkDir,
		Output:   filepath.Join(cfg.Paths.WorkDir, "narration.mp3"),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewEngineMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := narration.NewEngine(config.Narration{Engine: "espeak-ng"}, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if services.ExitCode(err) != services.ExitPrecondition {
		t.Fatalf("expected precondition exit code, got %d", services.ExitCode(err))
	}
}

func TestNewEngineFallsBackToEspeak(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteScript(t, filepath.Join(dir, "espeak"), "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", dir)
	engine, err := narration.NewEngine(config.Narration{Engine: "espeak-ng"}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if engine.Extension() != "wav" {
		t.Fatalf("unexpected extension %q", engine.Extension())
	}
}

func TestEngineArguments(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteScript(t, filepath.Join(dir, "say"), "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", dir)

	var got []string
	record := func(_ context.Context, name string, args ...string) error {
		got = append([]string{filepath.Base(name)}, args...)
		return nil
	}
	engine, err := narration.NewEngine(config.Narration{Engine: "say", Voice: "Samantha", Rate: 180, SegmentFormat: "aiff"}, record)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Synthesize(context.Background(), "/w/text.txt", "/w/seg.aiff"); err != nil {
		t.Fatal(err)
	}
	want := "say -v Samantha -r 180 --file-format=AIFF -f /w/text.txt -o /w/seg.aiff"
	if strings.Join(got, " ") != want {
		t.Fatalf("unexpected say args:\n got %s\nwant %s", strings.Join(got, " "), want)
	}
}

func TestConcatMissingSegment(t *testing.T) {
	synth, cfg := newSynth(t, "espeak-ng")
	calls := 0
	synth.WithCommandRunner(func(context.Context, string, ...string) error {
		calls++
		return nil
	})
	_, err := synth.Concat(context.Background(), []string{filepath.Join(cfg.Paths.WorkDir, "nope.wav")}, filepath.Join(cfg.Paths.WorkDir, "out.mp3"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls != 0 {
		t.Fatal("ffmpeg must not run when a segment is missing")
	}
}

func TestResolveExisting(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "narration-v2.mp3"), 8)

	got, ok := narration.ResolveExisting(dir, "narration-v3.mp3", "narration-v2.mp3", "narration.mp3")
	if !ok || got != filepath.Join(dir, "narration-v2.mp3") {
		t.Fatalf("unexpected resolution: %q %v", got, ok)
	}
	if _, ok := narration.ResolveExisting(dir, "missing.mp3"); ok {
		t.Fatal("expected no match")
	}
}
