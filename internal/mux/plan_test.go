package mux

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		name       string
		video      float64
		audio      float64
		opts       Options
		wantMode   Mode
		wantOutput float64
		wantPad    float64
		wantTrim   float64
		wantFade   float64
	}{
		{"audio longer pads", 45, 72, DefaultOptions, ModePad, 72, 27, 0, 1},
		{"video longer trims", 120, 90, DefaultOptions, ModeTrim, 90, 0, 30, 1},
		{"equal passes", 60, 60, DefaultOptions, ModePass, 60, 0, 0, 0},
		{"within tolerance above", 60, 60.9, DefaultOptions, ModePass, 60, 0, 0, 0},
		{"within tolerance below", 60, 59.2, DefaultOptions, ModePass, 60, 0, 0, 0},
		{"just outside tolerance", 60, 61.5, DefaultOptions, ModePad, 61.5, 1.5, 0, 0.75},
		{"zero tolerance", 10, 10.1, Options{Fade: 1}, ModePad, 10.1, 0.1, 0, 0.05},
		{"short trim clamps fade", 30, 1, Options{Fade: 2, Tolerance: 1}, ModeTrim, 1, 0, 29, 0.5},
		{"short video clamps fade", 1, 20, Options{Fade: 2, Tolerance: 1}, ModePad, 20, 19, 0, 0.5},
		{"negative inputs", -5, 3, DefaultOptions, ModePad, 3, 3, 0, 0},
		{"no fade", 45, 72, Options{Tolerance: 1}, ModePad, 72, 27, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan := Reconcile(tc.video, tc.audio, tc.opts)
			if plan.Mode != tc.wantMode {
				t.Fatalf("mode = %s, want %s", plan.Mode, tc.wantMode)
			}
			if !approx(plan.OutputSeconds, tc.wantOutput) {
				t.Fatalf("output = %v, want %v", plan.OutputSeconds, tc.wantOutput)
			}
			if !approx(plan.PadSeconds, tc.wantPad) || !approx(plan.TrimSeconds, tc.wantTrim) {
				t.Fatalf("pad/trim = %v/%v, want %v/%v", plan.PadSeconds, plan.TrimSeconds, tc.wantPad, tc.wantTrim)
			}
			if !approx(plan.Fade, tc.wantFade) {
				t.Fatalf("fade = %v, want %v", plan.Fade, tc.wantFade)
			}
		})
	}
}

func TestReconcileOutputTracksNarration(t *testing.T) {
	for video := 1.0; video <= 200; video += 7 {
		for audio := 1.0; audio <= 200; audio += 11 {
			plan := Reconcile(video, audio, DefaultOptions)
			switch plan.Mode {
			case ModePass:
				if math.Abs(plan.OutputSeconds-video) > 1e-9 || math.Abs(audio-video) > 1 {
					t.Fatalf("pass plan out of tolerance: %+v", plan)
				}
			default:
				if !approx(plan.OutputSeconds, audio) {
					t.Fatalf("expected output %v, got %+v", audio, plan)
				}
				if !approx(plan.VideoSeconds+plan.PadSeconds-plan.TrimSeconds, audio) {
					t.Fatalf("pad/trim do not add up: %+v", plan)
				}
			}
			if plan.Fade < 0 || plan.Fade > DefaultOptions.Fade {
				t.Fatalf("fade out of range: %+v", plan)
			}
		}
	}
}

func TestPlanSummary(t *testing.T) {
	if got := Reconcile(45, 72, DefaultOptions).Summary(); got != "pad 27.00s (video 45.00s -> 72.00s, fade 1.00s)" {
		t.Fatalf("unexpected summary: %q", got)
	}
	if got := Reconcile(60, 60, DefaultOptions).Summary(); got != "pass (video 60.00s, audio 60.00s)" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
