package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"demoreel/internal/browser"
	"demoreel/internal/capture"
	"demoreel/internal/logging"
	"demoreel/internal/narration"
	"demoreel/internal/preflight"
	"demoreel/internal/scenario"
	"demoreel/internal/services"
)

// Intermediate files live under <work_dir>/<scenario slug>/.
const (
	segmentsDir = "segments"
	captureName = "capture.mp4"
)

// runPlan holds everything derived from a scenario before any tool runs.
type runPlan struct {
	steps     []browser.Step
	crop      capture.Rect
	segments  string
	narration string
	video     string
	output    string
}

// muxFilter returns the crop applied while muxing. Screen captures are
// cropped by the capture device instead.
func (r runPlan) muxFilter(sc *scenario.Scenario) string {
	if sc.Capture == scenario.ModeBrowser && !r.crop.IsZero() {
		return r.crop.Filter()
	}
	return ""
}

func (p *Pipeline) prepare(sc *scenario.Scenario) (runPlan, error) {
	if err := sc.Validate(); err != nil {
		return runPlan{}, err
	}
	steps, err := sc.BrowserSteps()
	if err != nil {
		return runPlan{}, services.Wrap(services.ErrValidation, "validate", "steps", "", err)
	}
	crop, err := sc.CropRect(p.cfg.Capture.Crop)
	if err != nil {
		return runPlan{}, services.Wrap(services.ErrValidation, "validate", "crop", "", err)
	}
	workDir := filepath.Join(p.cfg.Paths.WorkDir, sc.Slug())
	return runPlan{
		steps:     steps,
		crop:      crop,
		segments:  filepath.Join(workDir, segmentsDir),
		narration: filepath.Join(workDir, p.cfg.Narration.OutputName),
		video:     filepath.Join(workDir, captureName),
		output:    sc.OutputPath(p.cfg.Paths.OutputDir),
	}, nil
}

// needs returns the binaries the full run of sc requires.
func needs(sc *scenario.Scenario) preflight.Needs {
	return preflight.Needs{
		Narration: len(sc.Narration) > 0,
		Browser:   true,
		Screen:    sc.Capture == scenario.ModeScreen,
	}
}

// checkInputs rejects the run before any tool starts when the target, an
// input file or a required binary is missing.
func (p *Pipeline) checkInputs(ctx context.Context, sc *scenario.Scenario, needs preflight.Needs) error {
	results := preflight.RunAll(ctx, p.cfg, sc.Target)
	if sc.NarrationFile != "" {
		results = append(results, preflight.CheckFile("Narration file", sc.NarrationFile))
	}
	logger := logging.WithContext(ctx, p.logger)
	for _, result := range results {
		logger.Debug("preflight check",
			logging.String("check", result.Name),
			logging.Bool("passed", result.Passed),
			logging.String("detail", result.Detail),
		)
	}
	if err := preflight.FirstFailure(results); err != nil {
		return err
	}
	return preflight.CheckRequired(p.cfg, needs)
}

func (p *Pipeline) narrate(ctx context.Context, sc *scenario.Scenario, segments, output string, force bool) (string, error) {
	if sc.NarrationFile != "" {
		logging.WithContext(ctx, p.logger).Info("using existing narration",
			logging.String("narration_file", sc.NarrationFile),
		)
		return sc.NarrationFile, nil
	}
	engine, err := narration.NewEngine(p.cfg.Narration, nil)
	if err != nil {
		return "", err
	}
	synth := narration.NewSynthesizer(p.cfg, engine, p.base)
	res, err := synth.Synthesize(ctx, narration.Request{
		Segments: sc.Narration,
		Dir:      segments,
		Output:   output,
		Force:    force,
	})
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// capture opens the target and records it while the steps run. Browser mode
// records the page screencast; screen mode records the desktop with a
// visible browser window.
func (p *Pipeline) capture(ctx context.Context, sc *scenario.Scenario, plan runPlan) (browser.Report, error) {
	headed := sc.Capture == scenario.ModeScreen
	session, err := p.openBrowser(ctx, sc.Target, headed)
	if err != nil {
		return browser.Report{}, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logging.WithContext(ctx, p.logger).Debug("browser close failed", logging.Error(err))
		}
	}()

	var rec capture.Recording
	if sc.Capture == scenario.ModeScreen {
		rec, err = p.startScreen(ctx, p.screen.Request(plan.video, 0, plan.crop))
	} else {
		rec, err = p.startRecorder(ctx, session.Frames(), plan.video)
	}
	if err != nil {
		return browser.Report{}, err
	}

	var report browser.Report
	if err := p.session.Run(ctx, rec, p.interaction(session.Page(), plan.steps, sc.Duration.Std(), &report)); err != nil {
		return report, err
	}
	if _, err := os.Stat(plan.video); err != nil {
		return report, services.Wrap(services.ErrExternalTool, "capture", "output", "no video produced", err)
	}
	return report, nil
}

// interaction runs the steps, then holds until at least hold has passed so
// the recording reaches the scenario duration.
func (p *Pipeline) interaction(page browser.Page, steps []browser.Step, hold time.Duration, report *browser.Report) capture.Interaction {
	return func(ctx context.Context) error {
		started := time.Now()
		*report = p.runner.Run(ctx, page, steps)
		if err := report.Err(); err != nil {
			return err
		}
		remaining := hold - time.Since(started)
		if remaining <= 0 {
			return nil
		}
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// detectCrop looks for black borders in video. Detection is best effort: a
// failure is logged and the video is muxed uncropped.
func (p *Pipeline) detectCrop(ctx context.Context, video string) string {
	logger := logging.WithContext(ctx, p.logger)
	filter, res, err := capture.DetectCrop(ctx, p.crop, video)
	if err != nil {
		logging.WarnWithContext(logger, "crop detection failed; muxing uncropped", "crop_detection_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set capture.crop to crop manually"),
		)
		return ""
	}
	logger.Info("crop detection",
		logging.Bool("required", res.Required),
		logging.Bool("multiple_ratios", res.MultipleRatios),
		logging.String("crop_filter", filter),
		logging.String("message", res.Message),
	)
	return filter
}

func (p *Pipeline) openChrome(ctx context.Context, target string, headed bool) (BrowserSession, error) {
	driver := p.driver
	if headed {
		driver = driver.Headed()
	}
	session, err := driver.Open(ctx, target)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (p *Pipeline) startDesktop(ctx context.Context, req capture.Request) (capture.Recording, error) {
	proc, err := p.screen.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func (p *Pipeline) startRecorder(ctx context.Context, src browser.FrameSource, output string) (capture.Recording, error) {
	rec, err := p.recorder.Start(ctx, src, output)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Narrate synthesizes the narration of sc without capturing. An empty output
// uses the work directory location the full run would use.
func (p *Pipeline) Narrate(ctx context.Context, sc *scenario.Scenario, output string, force bool) (string, error) {
	lock, err := acquireLock(p.cfg.Paths.WorkDir)
	if err != nil {
		return "", err
	}
	defer lock.release() //nolint:errcheck

	plan, err := p.prepare(sc)
	if err != nil {
		return "", err
	}
	if output == "" {
		output = plan.narration
	}
	if sc.NarrationFile != "" {
		if err := preflight.FirstFailure([]preflight.Result{preflight.CheckFile("Narration file", sc.NarrationFile)}); err != nil {
			return "", err
		}
	} else if err := preflight.CheckRequired(p.cfg, preflight.Needs{Narration: true}); err != nil {
		return "", err
	}
	return p.narrate(services.WithStep(ctx, "narration"), sc, plan.segments, output, force)
}

// Record runs the capture step of sc alone and returns the raw video path
// with the step report. An empty output uses the work directory location.
func (p *Pipeline) Record(ctx context.Context, sc *scenario.Scenario, output string) (string, browser.Report, error) {
	lock, err := acquireLock(p.cfg.Paths.WorkDir)
	if err != nil {
		return "", browser.Report{}, err
	}
	defer lock.release() //nolint:errcheck

	plan, err := p.prepare(sc)
	if err != nil {
		return "", browser.Report{}, err
	}
	if output != "" {
		plan.video = output
	}
	recordNeeds := needs(sc)
	recordNeeds.Narration = false
	if err := p.checkInputs(ctx, sc, recordNeeds); err != nil {
		return "", browser.Report{}, err
	}
	report, err := p.capture(services.WithStep(ctx, "capture"), sc, plan)
	return plan.video, report, err
}
