package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"demoreel/internal/history"
	"demoreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "mux", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mux", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	missing := services.Wrap(services.ErrNotFound, "mux", "inputs", "video missing", nil)
	if status := services.FailureStatus(missing); status != history.StatusInvalid {
		t.Fatalf("expected invalid for missing input, got %s", status)
	}

	toolErr := services.Wrap(services.ErrExternalTool, "capture", "ffmpeg", "exit status 1", errors.New("exit"))
	if status := services.FailureStatus(toolErr); status != history.StatusFailed {
		t.Fatalf("expected failed for tool error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != history.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{services.Wrap(services.ErrConfiguration, "narration", "engine", "say missing", nil), services.ExitPrecondition},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrValidation, "scenario", "load", "bad", nil)), services.ExitPrecondition},
		{services.Wrap(services.ErrTimeout, "browser", "navigate", "slow", nil), services.ExitFailure},
		{errors.New("plain"), services.ExitFailure},
	}
	for _, tc := range cases {
		if got := services.ExitCode(tc.err); got != tc.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
