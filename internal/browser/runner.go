package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"demoreel/internal/config"
	"demoreel/internal/logging"
	"demoreel/internal/services"
)

const stepName = "browser"

// Page is the set of interactions a scripted run needs. Implementations
// locate selectors within the deadline carried by ctx.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	// Scroll brings selector into view, or scrolls the page by pixels when
	// selector is empty.
	Scroll(ctx context.Context, selector string, pixels float64) error
	WaitVisible(ctx context.Context, selector string) error
}

// Status is the outcome of one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records what happened to one step.
type StepResult struct {
	Index    int           `json:"index"`
	Action   Action        `json:"action"`
	Selector string        `json:"selector,omitempty"`
	Required bool          `json:"required,omitempty"`
	Status   Status        `json:"status"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Report collects every step result of a run.
type Report struct {
	Steps []StepResult `json:"steps"`
	// Aborted is set when a required step failed or the context ended.
	Aborted bool `json:"aborted"`

	failure error
}

// Counts tallies step outcomes.
func (r Report) Counts() (ok, failed, skipped int) {
	for _, step := range r.Steps {
		switch step.Status {
		case StatusOK:
			ok++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return ok, failed, skipped
}

// Err returns the failure that aborted the run, or nil when every required
// step succeeded.
func (r Report) Err() error {
	return r.failure
}

// JSON renders the report for the run history.
func (r Report) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// Runner executes scripted steps against a Page.
type Runner struct {
	logger            *slog.Logger
	selectorTimeout   time.Duration
	navigationTimeout time.Duration
	sleep             func(ctx context.Context, d time.Duration) error
}

// NewRunner builds a Runner with the configured timeouts.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	r := &Runner{
		logger:            logging.NewComponentLogger(logger, "browser"),
		selectorTimeout:   5 * time.Second,
		navigationTimeout: 30 * time.Second,
		sleep:             sleepContext,
	}
	if cfg != nil {
		if cfg.Browser.SelectorTimeoutSeconds > 0 {
			r.selectorTimeout = time.Duration(cfg.Browser.SelectorTimeoutSeconds) * time.Second
		}
		if cfg.Browser.NavigationTimeoutSeconds > 0 {
			r.navigationTimeout = time.Duration(cfg.Browser.NavigationTimeoutSeconds) * time.Second
		}
	}
	return r
}

// Run executes steps in order and reports every outcome. A failing optional
// step is logged and the run continues; a failing required step, or the end
// of ctx, marks the remaining steps skipped.
func (r *Runner) Run(ctx context.Context, page Page, steps []Step) Report {
	logger := logging.WithContext(ctx, r.logger)
	report := Report{Steps: make([]StepResult, 0, len(steps))}

	for i, step := range steps {
		result := StepResult{
			Index:    i + 1,
			Action:   step.Action,
			Selector: step.Selector,
			Required: step.Required,
		}
		if report.Aborted {
			result.Status = StatusSkipped
			report.Steps = append(report.Steps, result)
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			report.failure = err
			result.Status = StatusSkipped
			report.Steps = append(report.Steps, result)
			continue
		}

		started := time.Now()
		err := r.execute(ctx, page, step)
		result.Elapsed = time.Since(started)

		switch {
		case err == nil:
			result.Status = StatusOK
			logger.Debug("step complete",
				logging.Int("index", result.Index),
				logging.String("step", step.Describe()),
				logging.Duration("elapsed", result.Elapsed),
			)
		case ctx.Err() != nil:
			result.Status = StatusFailed
			result.Err = err
			result.Error = err.Error()
			report.Aborted = true
			report.failure = ctx.Err()
		case step.Required:
			result.Status = StatusFailed
			result.Err = err
			result.Error = err.Error()
			report.Aborted = true
			report.failure = services.Wrap(services.ErrExternalTool, stepName, fmt.Sprintf("step %d", result.Index), step.Describe(), err)
			logging.ErrorWithContext(logger, "required step failed; stopping", "step_failed",
				logging.Int("index", result.Index),
				logging.String("step", step.Describe()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the selector against the page or mark the step optional"),
			)
		default:
			result.Status = StatusFailed
			result.Err = err
			result.Error = err.Error()
			logging.WarnWithContext(logger, "step failed; continuing", "step_failed",
				logging.Int("index", result.Index),
				logging.String("step", step.Describe()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "optional step; the recording continues without it"),
			)
		}
		report.Steps = append(report.Steps, result)

		if !report.Aborted && step.Action != ActionSleep && step.Wait > 0 {
			if err := r.sleep(ctx, step.Wait); err != nil {
				report.Aborted = true
				report.failure = err
			}
		}
	}

	ok, failed, skipped := report.Counts()
	logger.Info("browser steps finished",
		logging.String(logging.FieldEventType, "browser_steps_complete"),
		logging.Int("ok", ok),
		logging.Int("failed", failed),
		logging.Int("skipped", skipped),
		logging.Bool("aborted", report.Aborted),
	)
	return report
}

func (r *Runner) execute(ctx context.Context, page Page, step Step) error {
	if err := step.Validate(); err != nil {
		return err
	}
	if step.Action == ActionSleep {
		return r.sleep(ctx, step.Wait)
	}
	if page == nil {
		return errors.New("no page to drive")
	}

	timeout := r.selectorTimeout
	if step.Action == ActionNavigate {
		timeout = r.navigationTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch step.Action {
	case ActionNavigate:
		target, err := TargetURL(step.Value)
		if err != nil {
			return err
		}
		return page.Navigate(stepCtx, target)
	case ActionClick:
		return page.Click(stepCtx, step.Selector)
	case ActionHover:
		return page.Hover(stepCtx, step.Selector)
	case ActionType:
		return page.Type(stepCtx, step.Selector, step.Text)
	case ActionScroll:
		return page.Scroll(stepCtx, step.Selector, step.scrollPixels())
	case ActionWaitFor:
		return page.WaitVisible(stepCtx, step.Selector)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
