package archive

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"demoreel/internal/config"
	"demoreel/internal/logging"
	"demoreel/internal/services"
	"demoreel/internal/services/drapto"
)

const stepName = "archive"

// Archiver writes an AV1 archive copy of finished videos with Drapto.
type Archiver struct {
	logger  *slog.Logger
	client  drapto.Client
	enabled bool
	dir     string
}

// New builds an Archiver from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Archiver {
	a := &Archiver{
		logger: logging.NewComponentLogger(logger, "archive"),
		client: drapto.NewLibrary(),
	}
	if cfg != nil {
		a.enabled = cfg.Archive.Enabled
		a.dir = strings.TrimSpace(cfg.Archive.Dir)
	}
	return a
}

// WithClient swaps the Drapto client, typically for a fake in tests.
func (a *Archiver) WithClient(client drapto.Client) {
	if a != nil && client != nil {
		a.client = client
	}
}

// Enabled reports whether archiving is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.enabled && a.dir != ""
}

// Archive encodes input into the archive directory and returns the archive
// path. Progress is logged in 10% steps.
func (a *Archiver) Archive(ctx context.Context, input string) (string, error) {
	if a == nil || a.client == nil {
		return "", errors.New("archiver not initialized")
	}
	if a.dir == "" {
		return "", services.Wrap(services.ErrConfiguration, stepName, "validate", "archive.dir is not set", nil)
	}
	if info, err := os.Stat(input); err != nil || info.IsDir() {
		if err == nil {
			err = os.ErrNotExist
		}
		return "", services.Wrap(services.ErrNotFound, stepName, "stat", input, err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, stepName, "ensure dir", a.dir, err)
	}

	logger := logging.WithContext(ctx, a.logger)
	sampler := logging.NewProgressSampler(10)
	started := time.Now()
	progress := func(update drapto.ProgressUpdate) {
		switch update.Type {
		case drapto.EventTypeWarning:
			logging.WarnWithContext(logger, "drapto warning", "archive_warning",
				logging.String("message", update.Message),
			)
		case drapto.EventTypeError:
			logging.ErrorWithContext(logger, "drapto error", "archive_error",
				logging.String("message", update.Message),
			)
		case drapto.EventTypeStageProgress, drapto.EventTypeEncodingProgress:
			if !sampler.ShouldLog(update.Percent, update.Stage) {
				return
			}
			attrs := []logging.Attr{
				logging.Float64("progress_percent", update.Percent),
				logging.String("progress_stage", update.Stage),
			}
			if update.ETA > 0 {
				attrs = append(attrs, logging.Duration("progress_eta", update.ETA))
			}
			if update.Speed > 0 {
				attrs = append(attrs, logging.Float64("speed", update.Speed))
			}
			logger.Info("archive progress", logging.Args(attrs...)...)
		case drapto.EventTypeEncodingComplete:
			logger.Debug("archive encode complete",
				logging.String("output", update.OutputFile),
				logging.Int64("original_bytes", update.OriginalSize),
				logging.Int64("encoded_bytes", update.EncodedSize),
			)
		}
	}

	output, err := a.client.Encode(ctx, input, a.dir, progress)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stepName, "drapto encode", input, err)
	}
	logger.Info("archive copy written",
		logging.String(logging.FieldEventType, "archive_complete"),
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}
