package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"demoreel/internal/services"
)

type fakePage struct {
	present map[string]bool
	calls   []string
	// block makes lookups of missing selectors wait for the deadline.
	block bool
}

func newFakePage(selectors ...string) *fakePage {
	present := make(map[string]bool, len(selectors))
	for _, s := range selectors {
		present[s] = true
	}
	return &fakePage{present: present}
}

func (f *fakePage) lookup(ctx context.Context, action, selector string) error {
	f.calls = append(f.calls, action+" "+selector)
	if f.present[selector] {
		return nil
	}
	if f.block {
		<-ctx.Done()
		return fmt.Errorf("element %q not found: %w", selector, ctx.Err())
	}
	return fmt.Errorf("element %q not found", selector)
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.calls = append(f.calls, "navigate "+url)
	return nil
}

func (f *fakePage) Click(ctx context.Context, selector string) error {
	return f.lookup(ctx, "click", selector)
}

func (f *fakePage) Hover(ctx context.Context, selector string) error {
	return f.lookup(ctx, "hover", selector)
}

func (f *fakePage) Type(ctx context.Context, selector, text string) error {
	if err := f.lookup(ctx, "type", selector); err != nil {
		return err
	}
	f.calls[len(f.calls)-1] += "=" + text
	return nil
}

func (f *fakePage) Scroll(ctx context.Context, selector string, pixels float64) error {
	if selector == "" {
		f.calls = append(f.calls, fmt.Sprintf("scroll %.0f", pixels))
		return nil
	}
	return f.lookup(ctx, "scroll", selector)
}

func (f *fakePage) WaitVisible(ctx context.Context, selector string) error {
	return f.lookup(ctx, "wait_for", selector)
}

func newTestRunner() (*Runner, *[]time.Duration) {
	r := NewRunner(nil, nil)
	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return r, &slept
}

func TestRunContinuesPastMissingOptionalSelector(t *testing.T) {
	page := newFakePage("#email", "#submit")
	runner, _ := newTestRunner()

	report := runner.Run(context.Background(), page, []Step{
		{Action: ActionClick, Selector: "#cookie-banner"},
		{Action: ActionType, Selector: "#email", Text: "demo@example.com"},
		{Action: ActionClick, Selector: "#submit"},
	})

	wantCalls := []string{"click #cookie-banner", "type #email=demo@example.com", "click #submit"}
	if diff := cmp.Diff(wantCalls, page.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if err := report.Err(); err != nil {
		t.Fatalf("expected no run failure, got %v", err)
	}
	ok, failed, skipped := report.Counts()
	if ok != 2 || failed != 1 || skipped != 0 {
		t.Fatalf("unexpected counts ok=%d failed=%d skipped=%d", ok, failed, skipped)
	}
	if report.Steps[0].Status != StatusFailed || report.Steps[0].Err == nil {
		t.Fatalf("expected first step to be recorded as failed, got %+v", report.Steps[0])
	}
	if report.Aborted {
		t.Fatal("optional failure must not abort the run")
	}
}

func TestRunStopsAtRequiredFailure(t *testing.T) {
	page := newFakePage("#submit")
	runner, _ := newTestRunner()

	report := runner.Run(context.Background(), page, []Step{
		{Action: ActionClick, Selector: "#login", Required: true},
		{Action: ActionClick, Selector: "#submit"},
	})

	if !report.Aborted {
		t.Fatal("expected run to abort")
	}
	if !errors.Is(report.Err(), services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", report.Err())
	}
	if report.Steps[1].Status != StatusSkipped {
		t.Fatalf("expected remaining step skipped, got %s", report.Steps[1].Status)
	}
	if len(page.calls) != 1 {
		t.Fatalf("expected only the failing step to touch the page, got %v", page.calls)
	}
}

func TestRunBoundsSelectorLookup(t *testing.T) {
	page := newFakePage()
	page.block = true
	runner, _ := newTestRunner()
	runner.selectorTimeout = 20 * time.Millisecond

	start := time.Now()
	report := runner.Run(context.Background(), page, []Step{{Action: ActionHover, Selector: "#slow"}})
	if time.Since(start) > 2*time.Second {
		t.Fatal("selector lookup was not bounded")
	}
	if report.Steps[0].Status != StatusFailed || !strings.Contains(report.Steps[0].Error, "deadline") {
		t.Fatalf("expected deadline failure, got %+v", report.Steps[0])
	}
}

func TestRunPausesAfterSteps(t *testing.T) {
	page := newFakePage("#menu")
	runner, slept := newTestRunner()

	report := runner.Run(context.Background(), page, []Step{
		{Action: ActionNavigate, Value: "http://localhost:3000/pricing", Wait: time.Second},
		{Action: ActionSleep, Wait: 2 * time.Second},
		{Action: ActionHover, Selector: "#menu", Wait: 500 * time.Millisecond},
		{Action: ActionScroll},
	})
	if err := report.Err(); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 500 * time.Millisecond}
	if diff := cmp.Diff(want, *slept); diff != "" {
		t.Fatalf("pauses mismatch (-want +got):\n%s", diff)
	}
	if page.calls[0] != "navigate http://localhost:3000/pricing" || page.calls[2] != "scroll 600" {
		t.Fatalf("unexpected calls %v", page.calls)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner, _ := newTestRunner()

	report := runner.Run(ctx, newFakePage("#a"), []Step{
		{Action: ActionClick, Selector: "#a"},
		{Action: ActionClick, Selector: "#a"},
	})
	if !errors.Is(report.Err(), context.Canceled) {
		t.Fatalf("expected cancellation, got %v", report.Err())
	}
	_, _, skipped := report.Counts()
	if skipped != 2 {
		t.Fatalf("expected all steps skipped, got %d", skipped)
	}
}

func TestRunRecordsInvalidStep(t *testing.T) {
	runner, _ := newTestRunner()
	report := runner.Run(context.Background(), newFakePage(), []Step{{Action: ActionClick}})
	if report.Steps[0].Status != StatusFailed {
		t.Fatalf("expected invalid step to fail, got %+v", report.Steps[0])
	}
	if !strings.Contains(report.JSON(), `"status":"failed"`) {
		t.Fatalf("expected failed status in report json, got %s", report.JSON())
	}
}

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"Click":    ActionClick,
		"wait":     ActionWaitFor,
		"wait_for": ActionWaitFor,
		"pause":    ActionSleep,
		" type ":   ActionType,
	}
	for raw, want := range cases {
		got, ok := ParseAction(raw)
		if !ok || got != want {
			t.Fatalf("ParseAction(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := ParseAction("drag"); ok {
		t.Fatal("expected unknown action to be rejected")
	}
}

func TestStepValidate(t *testing.T) {
	valid := []Step{
		{Action: ActionNavigate, Value: "https://example.com"},
		{Action: ActionScroll},
		{Action: ActionScroll, Value: "-300"},
		{Action: ActionSleep, Wait: time.Second},
	}
	for _, step := range valid {
		if err := step.Validate(); err != nil {
			t.Fatalf("Validate(%+v) returned error: %v", step, err)
		}
	}
	invalid := []Step{
		{Action: ActionNavigate},
		{Action: ActionType, Text: "hi"},
		{Action: ActionScroll, Value: "lots"},
		{Action: ActionSleep},
		{Action: "drag", Selector: "#x"},
		{Action: ActionClick, Selector: "#x", Wait: -time.Second},
	}
	for _, step := range invalid {
		if err := step.Validate(); err == nil {
			t.Fatalf("Validate(%+v) expected error", step)
		}
	}
}

func TestTargetURL(t *testing.T) {
	for _, raw := range []string{"http://localhost:3000", "https://example.com/a", "file:///tmp/demo.html"} {
		got, err := TargetURL(raw)
		if err != nil || got != raw {
			t.Fatalf("TargetURL(%q) = %q, %v", raw, got, err)
		}
	}
	got, err := TargetURL("/srv/demo/index.html")
	if err != nil {
		t.Fatalf("TargetURL returned error: %v", err)
	}
	if got != "file:///srv/demo/index.html" {
		t.Fatalf("unexpected file url %q", got)
	}
	if _, err := TargetURL("  "); err == nil {
		t.Fatal("expected error for empty target")
	}
}
