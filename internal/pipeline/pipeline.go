package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"demoreel/internal/archive"
	"demoreel/internal/browser"
	"demoreel/internal/capture"
	"demoreel/internal/config"
	"demoreel/internal/history"
	"demoreel/internal/logging"
	"demoreel/internal/mux"
	"demoreel/internal/scenario"
	"demoreel/internal/services"
	"demoreel/internal/services/drapto"
)

// BrowserSession is an open page the pipeline can drive and record.
type BrowserSession interface {
	Page() browser.Page
	Frames() browser.FrameSource
	Close() error
}

// BrowserOpener opens target in Chrome. Headed sessions show a window so
// screen capture can see them.
type BrowserOpener func(ctx context.Context, target string, headed bool) (BrowserSession, error)

// ScreenStarter begins a desktop capture.
type ScreenStarter func(ctx context.Context, req capture.Request) (capture.Recording, error)

// Options tune a single run.
type Options struct {
	// Force re-synthesizes narration segments that already exist.
	Force bool
	// SkipArchive disables the archive encode even when configured.
	SkipArchive bool
}

// Result summarizes a run.
type Result struct {
	RunID     string
	Scenario  string
	Narration string
	Video     string
	// CropFilter is the crop applied while muxing, if any.
	CropFilter string
	Mux        mux.Result
	Report     browser.Report
	Output     string
	Archive    string
	Elapsed    time.Duration
}

// Pipeline turns a scenario into a narrated video.
type Pipeline struct {
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger
	store  *history.Store

	driver      *browser.Driver
	runner      *browser.Runner
	recorder    *browser.Recorder
	screen      *capture.Screen
	session     *capture.Session
	muxer       *mux.Muxer
	archiver    *archive.Archiver
	crop        capture.CropDetector
	openBrowser BrowserOpener
	startScreen ScreenStarter
}

// New wires a pipeline from configuration. store may be nil, in which case
// runs are not recorded.
func New(cfg *config.Config, logger *slog.Logger, store *history.Store) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		store:    store,
		driver:   browser.NewDriver(cfg, logger),
		runner:   browser.NewRunner(cfg, logger),
		recorder: browser.NewRecorder(cfg, logger),
		screen:   capture.NewScreen(cfg, logger),
		session:  capture.NewSession(logger),
		muxer:    mux.NewMuxer(cfg, logger),
		archiver: archive.New(cfg, logger),
	}
	p.openBrowser = p.openChrome
	p.startScreen = p.startDesktop
	return p
}

// WithBrowserOpener replaces how Chrome sessions are opened.
func (p *Pipeline) WithBrowserOpener(open BrowserOpener) {
	if p != nil && open != nil {
		p.openBrowser = open
	}
}

// WithScreenStarter replaces how desktop captures are started.
func (p *Pipeline) WithScreenStarter(start ScreenStarter) {
	if p != nil && start != nil {
		p.startScreen = start
	}
}

// WithCropDetector replaces the crop detector used for auto crop.
func (p *Pipeline) WithCropDetector(detector capture.CropDetector) {
	if p != nil && detector != nil {
		p.crop = detector
	}
}

// WithArchiveClient replaces the Drapto client used by the archive step.
func (p *Pipeline) WithArchiveClient(client drapto.Client) {
	if p != nil {
		p.archiver.WithClient(client)
	}
}

// Run executes every step for sc and records the outcome in history. Steps
// run strictly in order and each writes its file before the next reads it.
func (p *Pipeline) Run(ctx context.Context, sc *scenario.Scenario, opts Options) (Result, error) {
	if p == nil || p.cfg == nil {
		return Result{}, errors.New("pipeline not initialized")
	}
	if sc == nil {
		return Result{}, services.Wrap(services.ErrValidation, "pipeline", "run", "scenario is required", nil)
	}
	lock, err := acquireLock(p.cfg.Paths.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lock.release(); err != nil {
			p.logger.Warn("release lock failed", logging.Error(err))
		}
	}()

	run := p.begin(ctx, sc)
	result := Result{RunID: run.ID, Scenario: sc.Name}
	ctx = services.WithScenario(services.WithRunID(ctx, run.ID), sc.Name)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("capture", string(sc.Capture)),
		logging.String("target", sc.Target),
	)

	started := time.Now()
	runErr := p.execute(ctx, sc, opts, &result)
	result.Elapsed = time.Since(started)
	p.finish(ctx, run, result, runErr)

	if runErr != nil {
		logger.Error("run failed",
			logging.String(logging.FieldEventType, "run_failure"),
			logging.Duration("elapsed", result.Elapsed),
			logging.Error(runErr),
		)
		return result, runErr
	}
	ok, failed, skipped := result.Report.Counts()
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", result.Output),
		logging.String("mux_mode", string(result.Mux.Plan.Mode)),
		logging.Int("steps_ok", ok),
		logging.Int("steps_failed", failed),
		logging.Int("steps_skipped", skipped),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, sc *scenario.Scenario, opts Options, result *Result) error {
	var plan runPlan
	if err := p.stage(ctx, "validate", func(ctx context.Context) error {
		var err error
		plan, err = p.prepare(sc)
		return err
	}); err != nil {
		return err
	}
	if err := p.stage(ctx, "preflight", func(ctx context.Context) error {
		return p.checkInputs(ctx, sc, needs(sc))
	}); err != nil {
		return err
	}
	if err := p.stage(ctx, "narration", func(ctx context.Context) error {
		audio, err := p.narrate(ctx, sc, plan.segments, plan.narration, opts.Force)
		result.Narration = audio
		return err
	}); err != nil {
		return err
	}
	if err := p.stage(ctx, "capture", func(ctx context.Context) error {
		report, err := p.capture(ctx, sc, plan)
		result.Video = plan.video
		result.Report = report
		return err
	}); err != nil {
		return err
	}

	filter := plan.muxFilter(sc)
	if filter == "" && plan.crop.IsZero() && sc.WantsAutoCrop(p.cfg.Capture.AutoCrop) {
		_ = p.stage(ctx, "crop", func(ctx context.Context) error {
			filter = p.detectCrop(ctx, plan.video)
			return nil
		})
	}
	result.CropFilter = filter

	if err := p.stage(ctx, "mux", func(ctx context.Context) error {
		res, err := p.muxer.Mux(ctx, mux.Request{
			Video:       plan.video,
			Audio:       result.Narration,
			Output:      plan.output,
			VideoFilter: filter,
		})
		result.Mux = res
		result.Output = res.Output
		return err
	}); err != nil {
		return err
	}

	if p.archiver.Enabled() && !opts.SkipArchive {
		if err := p.stage(ctx, "archive", func(ctx context.Context) error {
			path, err := p.archiver.Archive(ctx, result.Output)
			result.Archive = path
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// stage runs fn with the step name attached to the context and logs its
// start and outcome.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStep(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()
	if err := fn(stageCtx); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("resolved_status", string(services.FailureStatus(err))),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// begin records a running entry. Without a store the run still gets an ID
// so its log lines can be correlated.
func (p *Pipeline) begin(ctx context.Context, sc *scenario.Scenario) *history.Run {
	if p.store != nil {
		if n, err := p.store.MarkAbandoned(ctx); err != nil {
			p.logger.Warn("mark abandoned runs failed", logging.Error(err))
		} else if n > 0 {
			p.logger.Info("marked interrupted runs as failed", logging.Int64("count", n))
		}
		run, err := p.store.Begin(ctx, sc.Name, sc.Path)
		if err == nil {
			return run
		}
		logging.WarnWithContext(p.logger, "record run start failed", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
		)
	}
	return &history.Run{ID: uuid.NewString(), Scenario: sc.Name, ScenarioPath: sc.Path}
}

func (p *Pipeline) finish(ctx context.Context, run *history.Run, result Result, runErr error) {
	if p.store == nil || run == nil || run.StartedAt.IsZero() {
		return
	}
	run.Status = history.StatusSucceeded
	if runErr != nil {
		run.Status = services.FailureStatus(runErr)
		run.ErrorMessage = strings.TrimSpace(runErr.Error())
	}
	run.OutputPath = result.Output
	run.VideoSeconds = result.Mux.VideoSeconds
	run.AudioSeconds = result.Mux.AudioSeconds
	run.OutputSeconds = result.Mux.Plan.OutputSeconds
	run.MuxMode = string(result.Mux.Plan.Mode)
	run.StepsOK, run.StepsFailed, run.StepsSkipped = result.Report.Counts()
	if len(result.Report.Steps) > 0 {
		run.ReportJSON = result.Report.JSON()
	}
	if err := p.store.Finish(context.WithoutCancel(ctx), run); err != nil {
		logging.WithContext(ctx, p.logger).Warn("record run result failed", logging.Error(err))
	}
}
