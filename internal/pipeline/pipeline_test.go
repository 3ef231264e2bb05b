package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofrs/flock"

	"demoreel/internal/browser"
	"demoreel/internal/capture"
	"demoreel/internal/config"
	"demoreel/internal/history"
	"demoreel/internal/mux"
	"demoreel/internal/pipeline"
	"demoreel/internal/scenario"
	"demoreel/internal/services"
	"demoreel/internal/services/drapto"
	"demoreel/internal/testsupport"
)

type fakePage struct {
	missing map[string]bool
	calls   []string
}

func (f *fakePage) do(action, selector string) error {
	f.calls = append(f.calls, action+" "+selector)
	if f.missing[selector] {
		return fmt.Errorf("element %q not found", selector)
	}
	return nil
}

func (f *fakePage) Navigate(_ context.Context, url string) error { return f.do("navigate", url) }
func (f *fakePage) Click(_ context.Context, selector string) error {
	return f.do("click", selector)
}
func (f *fakePage) Hover(_ context.Context, selector string) error {
	return f.do("hover", selector)
}
func (f *fakePage) Type(_ context.Context, selector, _ string) error {
	return f.do("type", selector)
}
func (f *fakePage) Scroll(_ context.Context, selector string, _ float64) error {
	return f.do("scroll", selector)
}
func (f *fakePage) WaitVisible(_ context.Context, selector string) error {
	return f.do("wait_for", selector)
}

type fakeFrames struct{}

func (fakeFrames) StartFrames(_ context.Context, onFrame func([]byte)) (func() error, error) {
	onFrame([]byte{0xff, 0xd8, 0xff, 0xd9})
	return func() error { return nil }, nil
}

type fakeSession struct {
	page   *fakePage
	closed atomic.Bool
}

func (s *fakeSession) Page() browser.Page          { return s.page }
func (s *fakeSession) Frames() browser.FrameSource { return fakeFrames{} }
func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeBrowser struct {
	session *fakeSession
	opened  atomic.Int32
	headed  atomic.Bool
	target  string
}

func newFakeBrowser(missing ...string) *fakeBrowser {
	page := &fakePage{missing: map[string]bool{}}
	for _, s := range missing {
		page.missing[s] = true
	}
	return &fakeBrowser{session: &fakeSession{page: page}}
}

func (b *fakeBrowser) open(_ context.Context, target string, headed bool) (pipeline.BrowserSession, error) {
	b.opened.Add(1)
	b.headed.Store(headed)
	b.target = target
	return b.session, nil
}

// fakeDrapto serves both crop detection and the archive encode.
type fakeDrapto struct {
	crop    drapto.CropResult
	encoded string
}

func (f *fakeDrapto) Encode(_ context.Context, input, outputDir string, _ func(drapto.ProgressUpdate)) (string, error) {
	out := drapto.OutputPath(input, outputDir)
	if err := os.WriteFile(out, []byte("av1"), 0o644); err != nil {
		return "", err
	}
	f.encoded = input
	return out, nil
}

func (f *fakeDrapto) DetectCrop(context.Context, string) (drapto.CropResult, error) {
	return f.crop, nil
}

type harness struct {
	cfg     *config.Config
	store   *history.Store
	browser *fakeBrowser
	p       *pipeline.Pipeline
	dir     string
}

func newHarness(t *testing.T, missing ...string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFakeMediaTools())
	cfg.Capture.AutoCrop = false
	store := testsupport.MustOpenHistory(t, cfg)
	fb := newFakeBrowser(missing...)
	p := pipeline.New(cfg, nil, store)
	p.WithBrowserOpener(fb.open)

	dir := filepath.Join(testsupport.BaseDir(cfg), "scenarios")
	testsupport.WriteFile(t, filepath.Join(dir, "index.html"), 32)
	return &harness{cfg: cfg, store: store, browser: fb, p: p, dir: dir}
}

func (h *harness) scenario(t *testing.T, body string) *scenario.Scenario {
	t.Helper()
	path := filepath.Join(h.dir, "checkout.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	sc, err := scenario.Load(path)
	if err != nil {
		t.Fatalf("scenario.Load: %v", err)
	}
	return sc
}

func (h *harness) run(t *testing.T, body string) (pipeline.Result, error) {
	t.Helper()
	return h.p.Run(context.Background(), h.scenario(t, body), pipeline.Options{})
}

const browserScenario = `name: Checkout Flow
target: index.html
narration:
  - Welcome to the shop.
  - Add an item to the cart.
steps:
  - action: click
    selector: "#add"
  - action: hover
    selector: "#tooltip"
  - action: type
    selector: "#email"
    text: demo@example.com
`

func TestRunBrowserScenarioProducesOutput(t *testing.T) {
	h := newHarness(t, "#tooltip")

	result, err := h.run(t, browserScenario)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantOutput := filepath.Join(h.cfg.Paths.OutputDir, "checkout-flow.mp4")
	if result.Output != wantOutput {
		t.Fatalf("output = %q, want %q", result.Output, wantOutput)
	}
	for _, path := range []string{result.Output, result.Narration, result.Video} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
	}
	if result.Video != filepath.Join(h.cfg.Paths.WorkDir, "checkout-flow", "capture.mp4") {
		t.Fatalf("unexpected capture path %q", result.Video)
	}
	if h.browser.headed.Load() {
		t.Fatal("browser mode should honor the headless setting")
	}
	if !h.browser.session.closed.Load() {
		t.Fatal("expected browser session to be closed")
	}

	// Two 3 second segments against a 1 second capture.
	if result.Mux.Plan.Mode != mux.ModePad {
		t.Fatalf("expected pad mode, got %+v", result.Mux.Plan)
	}
	if result.Mux.AudioSeconds != 6 || result.Mux.VideoSeconds != 1 {
		t.Fatalf("unexpected durations: %+v", result.Mux)
	}

	ok, failed, skipped := result.Report.Counts()
	if ok != 2 || failed != 1 || skipped != 0 {
		t.Fatalf("step counts = %d/%d/%d, want 2/1/0", ok, failed, skipped)
	}

	run, err := h.store.Get(context.Background(), result.RunID)
	if err != nil || run == nil {
		t.Fatalf("history Get: %v %+v", err, run)
	}
	if run.Status != history.StatusSucceeded || run.MuxMode != "pad" || run.OutputPath != wantOutput {
		t.Fatalf("unexpected history entry: %+v", run)
	}
	if run.StepsOK != 2 || run.StepsFailed != 1 || !strings.Contains(run.ReportJSON, `"#tooltip"`) {
		t.Fatalf("unexpected step report in history: %+v", run)
	}

	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, pipeline.LockName)); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if _, err := h.run(t, browserScenario); err != nil {
		t.Fatalf("lock should be released after a run: %v", err)
	}
}

func TestRunRequiredStepFailureStopsBeforeMux(t *testing.T) {
	h := newHarness(t, "#pay")

	result, err := h.run(t, `name: Checkout Flow
target: index.html
narration: [Pay for the order.]
steps:
  - action: click
    selector: "#pay"
    required: true
  - action: click
    selector: "#confirm"
`)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if code := services.ExitCode(err); code != services.ExitFailure {
		t.Fatalf("exit code = %d, want %d", code, services.ExitFailure)
	}
	if result.Output != "" {
		t.Fatalf("mux should not run, got output %q", result.Output)
	}
	if _, statErr := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, "checkout-flow.mp4")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no final output, stat err = %v", statErr)
	}

	run, err := h.store.Get(context.Background(), result.RunID)
	if err != nil || run == nil {
		t.Fatalf("history Get: %v %+v", err, run)
	}
	if run.Status != history.StatusFailed || run.StepsFailed != 1 || run.StepsSkipped != 1 {
		t.Fatalf("unexpected history entry: %+v", run)
	}
	if !strings.Contains(run.ErrorMessage, "#pay") {
		t.Fatalf("expected failing selector in error message, got %q", run.ErrorMessage)
	}
}

func TestRunMissingNarrationFileInvokesNoTool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "logged-bin")
	toolLog := filepath.Join(testsupport.BaseDir(cfg), "tools.log")
	for _, name := range []string{"ffmpeg", "ffprobe", "espeak-ng"} {
		testsupport.WriteScript(t, filepath.Join(binDir, name), fmt.Sprintf("#!/bin/sh\necho %s >> %q\n", name, toolLog))
	}
	testsupport.PrependPath(t, binDir)
	store := testsupport.MustOpenHistory(t, cfg)

	fb := newFakeBrowser()
	p := pipeline.New(cfg, nil, store)
	p.WithBrowserOpener(fb.open)

	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "index.html"), 32)
	path := filepath.Join(dir, "voiceover.yaml")
	if err := os.WriteFile(path, []byte("target: index.html\nnarration_file: missing.mp3\n"), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	sc, err := scenario.Load(path)
	if err != nil {
		t.Fatalf("scenario.Load: %v", err)
	}

	result, err := p.Run(context.Background(), sc, pipeline.Options{})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if code := services.ExitCode(err); code != services.ExitPrecondition {
		t.Fatalf("exit code = %d, want %d", code, services.ExitPrecondition)
	}
	if fb.opened.Load() != 0 {
		t.Fatal("browser should not be opened")
	}
	if _, statErr := os.Stat(toolLog); !os.IsNotExist(statErr) {
		logged, _ := os.ReadFile(toolLog)
		t.Fatalf("expected no tool invocation, got %q", logged)
	}

	run, err := store.Get(context.Background(), result.RunID)
	if err != nil || run == nil {
		t.Fatalf("history Get: %v %+v", err, run)
	}
	if run.Status != history.StatusInvalid {
		t.Fatalf("expected invalid status, got %q", run.Status)
	}
}

func TestRunScreenCaptureHoldsForDuration(t *testing.T) {
	h := newHarness(t)

	result, err := h.run(t, `name: Dashboard
target: index.html
capture: screen
duration: 0.05
narration: [The dashboard at a glance.]
`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !h.browser.headed.Load() {
		t.Fatal("screen capture needs a visible browser")
	}
	if h.browser.target != filepath.Join(h.dir, "index.html") {
		t.Fatalf("unexpected target %q", h.browser.target)
	}
	if len(result.Report.Steps) != 0 {
		t.Fatalf("expected no steps, got %+v", result.Report.Steps)
	}
	if _, err := os.Stat(result.Video); err != nil {
		t.Fatalf("expected capture file: %v", err)
	}
	if result.Mux.Plan.Mode != mux.ModePad {
		t.Fatalf("expected pad mode, got %+v", result.Mux.Plan)
	}
}

type failingRecording struct{ err error }

func (f failingRecording) Stop() error { return f.err }
func (f failingRecording) Wait() error { return f.err }

func TestRunScreenCaptureFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	var seen capture.Request
	h.p.WithScreenStarter(func(_ context.Context, req capture.Request) (capture.Recording, error) {
		seen = req
		return failingRecording{err: services.Wrap(services.ErrExternalTool, "capture", "ffmpeg", "permission denied", nil)}, nil
	})

	result, err := h.run(t, `name: Dashboard
target: index.html
capture: screen
crop: 1280x720+0+40
narration:
  - Refreshing the dashboard pulls the latest numbers.
steps:
  - action: click
    selector: "#refresh"
`)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if seen.Crop != (capture.Rect{W: 1280, H: 720, X: 0, Y: 40}) {
		t.Fatalf("crop not passed to the capture device: %+v", seen)
	}
	if seen.Duration != 0 {
		t.Fatalf("capture should be stopped by the interaction, got duration %v", seen.Duration)
	}
	run, getErr := h.store.Get(context.Background(), result.RunID)
	if getErr != nil || run == nil || run.Status != history.StatusFailed {
		t.Fatalf("expected failed history entry, got %+v (%v)", run, getErr)
	}
}

func TestRunAutoCropAndArchive(t *testing.T) {
	h := newHarness(t)
	h.cfg.Archive.Enabled = true
	fake := &fakeDrapto{crop: drapto.CropResult{Required: true, Filter: "crop=1920:800:0:140"}}
	p := pipeline.New(h.cfg, nil, h.store)
	p.WithBrowserOpener(h.browser.open)
	p.WithCropDetector(fake)
	p.WithArchiveClient(fake)

	sc := h.scenario(t, "name: Wide\ntarget: index.html\nauto_crop: true\nnarration: [Letterboxed demo.]\n")
	result, err := p.Run(context.Background(), sc, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.CropFilter != "crop=1920:800:0:140" {
		t.Fatalf("unexpected crop filter %q", result.CropFilter)
	}
	if !strings.Contains(strings.Join(result.Mux.Args, " "), "crop=1920:800:0:140") {
		t.Fatalf("crop filter not passed to ffmpeg: %v", result.Mux.Args)
	}
	if fake.encoded != result.Output {
		t.Fatalf("archive encoded %q, want %q", fake.encoded, result.Output)
	}
	if result.Archive != filepath.Join(h.cfg.Archive.Dir, "wide.mkv") {
		t.Fatalf("unexpected archive path %q", result.Archive)
	}

	result, err = p.Run(context.Background(), sc, pipeline.Options{SkipArchive: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Archive != "" {
		t.Fatalf("expected archive to be skipped, got %q", result.Archive)
	}
}

func TestRunExplicitCropWinsInBrowserMode(t *testing.T) {
	h := newHarness(t)
	fake := &fakeDrapto{crop: drapto.CropResult{Required: true, Filter: "crop=10:10:0:0"}}
	h.p.WithCropDetector(fake)

	result, err := h.run(t, "name: Cropped\ntarget: index.html\ncrop: 1281x721+0+0\nauto_crop: true\nnarration: [Hi.]\n")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.CropFilter != "crop=1280:720:0:0" {
		t.Fatalf("unexpected crop filter %q", result.CropFilter)
	}
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	h := newHarness(t)
	other := flock.New(filepath.Join(h.cfg.Paths.WorkDir, pipeline.LockName))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: %v %v", locked, err)
	}
	defer other.Unlock()

	_, err = h.run(t, browserScenario)
	if !errors.Is(err, pipeline.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if code := services.ExitCode(err); code != services.ExitFailure {
		t.Fatalf("exit code = %d, want %d", code, services.ExitFailure)
	}
	if h.browser.opened.Load() != 0 {
		t.Fatal("browser should not be opened while locked")
	}
}

func TestNarrateStandalone(t *testing.T) {
	h := newHarness(t)
	sc := h.scenario(t, browserScenario)
	out := filepath.Join(t.TempDir(), "voice.mp3")

	got, err := h.p.Narrate(context.Background(), sc, out, false)
	if err != nil {
		t.Fatalf("Narrate returned error: %v", err)
	}
	if got != out {
		t.Fatalf("Narrate = %q, want %q", got, out)
	}
	segments, err := os.ReadDir(filepath.Join(h.cfg.Paths.WorkDir, "checkout-flow", "segments"))
	if err != nil {
		t.Fatalf("read segments: %v", err)
	}
	var audio int
	for _, entry := range segments {
		if strings.HasSuffix(entry.Name(), ".wav") {
			audio++
		}
	}
	if audio != 2 {
		t.Fatalf("expected 2 segment files, got %d", audio)
	}
	if h.browser.opened.Load() != 0 {
		t.Fatal("narrate should not open the browser")
	}
}

func TestRecordStandalone(t *testing.T) {
	h := newHarness(t, "#tooltip")
	sc := h.scenario(t, browserScenario)
	out := filepath.Join(t.TempDir(), "raw.mp4")

	video, report, err := h.p.Record(context.Background(), sc, out)
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if video != out {
		t.Fatalf("Record = %q, want %q", video, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected recording: %v", err)
	}
	if _, failed, _ := report.Counts(); failed != 1 {
		t.Fatalf("expected one failed optional step, got %+v", report.Steps)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, "checkout-flow", h.cfg.Narration.OutputName)); !os.IsNotExist(err) {
		t.Fatalf("record should not synthesize narration, stat err = %v", err)
	}
}
