package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
)

type fakeRecording struct {
	stopOnce sync.Once
	stopped  chan struct{}
	stops    atomic.Int32
	// dieWith makes the recording end on its own with this error.
	dieWith error
}

func newFakeRecording(dieWith error) *fakeRecording {
	return &fakeRecording{stopped: make(chan struct{}), dieWith: dieWith}
}

func (f *fakeRecording) Stop() error {
	f.stops.Add(1)
	f.stopOnce.Do(func() { close(f.stopped) })
	return f.Wait()
}

func (f *fakeRecording) Wait() error {
	if f.dieWith != nil {
		return f.dieWith
	}
	<-f.stopped
	return nil
}

func TestSessionStopsRecordingAfterInteraction(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newFakeRecording(nil)
	var steps []string
	err := NewSession(nil).Run(context.Background(), rec, func(ctx context.Context) error {
		steps = append(steps, "click", "type")
		select {
		case <-rec.stopped:
			t.Error("recording stopped before interaction finished")
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected interaction to run, got %v", steps)
	}
	if rec.stops.Load() != 1 {
		t.Fatalf("expected one stop, got %d", rec.stops.Load())
	}
}

func TestSessionReturnsInteractionError(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := newFakeRecording(nil)
	boom := errors.New("required step failed")
	err := NewSession(nil).Run(context.Background(), rec, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected interaction error, got %v", err)
	}
	if rec.stops.Load() != 1 {
		t.Fatal("expected recording to be stopped after a failed interaction")
	}
}

func TestSessionCancelsInteractionWhenRecordingDies(t *testing.T) {
	defer goleak.VerifyNone(t)

	died := errors.New("capture device vanished")
	rec := newFakeRecording(died)
	err := NewSession(nil).Run(context.Background(), rec, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, died) {
		t.Fatalf("expected recording error, got %v", err)
	}
}

func TestSessionRejectsNilRecording(t *testing.T) {
	if err := NewSession(nil).Run(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil recording")
	}
}
