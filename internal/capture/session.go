package capture

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"demoreel/internal/logging"
)

// Recording is a capture running in the background.
type Recording interface {
	Stop() error
	Wait() error
}

// Interaction drives the screen while a recording runs.
type Interaction func(ctx context.Context) error

// Session joins a background recording with a foreground interaction.
type Session struct {
	logger *slog.Logger
}

// NewSession returns a Session logging through logger.
func NewSession(logger *slog.Logger) *Session {
	return &Session{logger: logging.NewComponentLogger(logger, "capture")}
}

// Run executes interact while rec records. When interact returns the
// recording is stopped, and Run returns once both have finished. A recording
// that dies early cancels the context passed to interact. The first failure
// is returned.
func (s *Session) Run(ctx context.Context, rec Recording, interact Interaction) error {
	if rec == nil {
		return errors.New("capture session: recording is nil")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(rec.Wait)
	g.Go(func() error {
		var err error
		if interact != nil {
			err = interact(gctx)
		}
		stopErr := rec.Stop()
		if err != nil {
			logging.WithContext(ctx, s.logger).Debug("interaction ended with error; capture stopped",
				logging.Error(err),
			)
			return err
		}
		return stopErr
	})
	return g.Wait()
}
