package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"demoreel/internal/config"
	"demoreel/internal/logging"
	"demoreel/internal/services"
)

const (
	stepName = "capture"

	// stopGrace bounds how long ffmpeg may take to flush after "q".
	stopGrace = 10 * time.Second
	tailLimit = 2048
)

var commandContext = exec.CommandContext

// Screen records the desktop with ffmpeg's platform capture device.
type Screen struct {
	logger    *slog.Logger
	ffmpeg    string
	goos      string
	display   string
	framerate int
	grace     time.Duration
}

// NewScreen builds a Screen from configuration.
func NewScreen(cfg *config.Config, logger *slog.Logger) *Screen {
	s := &Screen{
		logger:    logging.NewComponentLogger(logger, "capture"),
		ffmpeg:    "ffmpeg",
		goos:      runtime.GOOS,
		framerate: defaultFramerate,
		grace:     stopGrace,
	}
	if cfg != nil {
		s.ffmpeg = cfg.FFmpegBinary()
		s.display = cfg.Capture.Display
		if cfg.Capture.Framerate > 0 {
			s.framerate = cfg.Capture.Framerate
		}
	}
	return s
}

// Request fills a capture request with the configured display and framerate.
func (s *Screen) Request(output string, duration time.Duration, crop Rect) Request {
	return Request{
		Display:   s.display,
		Framerate: s.framerate,
		Crop:      crop,
		Duration:  duration,
		Output:    output,
	}
}

// Start launches ffmpeg in the background. The returned Process must be
// stopped or waited on.
func (s *Screen) Start(ctx context.Context, req Request) (*Process, error) {
	args, err := BuildArgs(s.goos, req)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stepName, "build args", "", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stepName, "ensure output dir", filepath.Dir(req.Output), err)
	}

	// ffmpeg only finalizes the container when it quits on "q", so
	// cancellation goes through Stop instead of killing the process.
	cmd := commandContext(context.WithoutCancel(ctx), s.ffmpeg, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("capture: stdin pipe: %w", err)
	}
	tail := &tailWriter{limit: tailLimit}
	cmd.Stdout = io.Discard
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, services.Wrap(services.ErrNotFound, stepName, "start", "ffmpeg not found", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stepName, "start", "", err)
	}

	proc := &Process{
		cmd:     cmd,
		stdin:   stdin,
		tail:    tail,
		output:  req.Output,
		started: time.Now(),
		grace:   s.grace,
		done:    make(chan struct{}),
		logger:  logging.WithContext(ctx, s.logger),
	}
	go proc.reap()
	proc.logger.Info("screen capture started",
		logging.String(logging.FieldEventType, "capture_started"),
		logging.String("display", req.Display),
		logging.String("crop", req.Crop.String()),
		logging.Duration("duration", req.Duration),
		logging.String("output", req.Output),
	)
	return proc, nil
}

// Record captures for req.Duration and waits for ffmpeg to exit. When ctx
// ends first the capture is stopped early and the partial file is kept.
func (s *Screen) Record(ctx context.Context, req Request) error {
	if req.Duration <= 0 {
		return services.Wrap(services.ErrValidation, stepName, "record", "a fixed-length capture needs a positive duration", nil)
	}
	proc, err := s.Start(ctx, req)
	if err != nil {
		return err
	}
	select {
	case <-proc.done:
		return proc.Wait()
	case <-ctx.Done():
		proc.logger.Info("screen capture interrupted; finalizing output",
			logging.String(logging.FieldEventType, "capture_interrupted"),
			logging.Duration("elapsed", time.Since(proc.started)),
		)
		return proc.Stop()
	}
}

// Process is a running ffmpeg capture.
type Process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	tail    *tailWriter
	output  string
	started time.Time
	grace   time.Duration
	logger  *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func (p *Process) reap() {
	p.err = p.cmd.Wait()
	if p.err == nil {
		p.logger.Info("screen capture finished",
			logging.String(logging.FieldEventType, "capture_complete"),
			logging.Duration("elapsed", time.Since(p.started)),
			logging.String("output", p.output),
		)
	}
	close(p.done)
}

// Output returns the file being recorded.
func (p *Process) Output() string {
	return p.output
}

// Stop asks ffmpeg to finish by sending "q" on stdin, then waits for it to
// exit. ffmpeg is killed if it does not exit within the grace period.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		_, _ = io.WriteString(p.stdin, "q\n")
		_ = p.stdin.Close()
		select {
		case <-p.done:
		case <-time.After(p.grace):
			p.logger.Warn("screen capture did not stop in time; killing ffmpeg",
				logging.String(logging.FieldEventType, "capture_kill"),
				logging.String(logging.FieldErrorHint, "check that the capture device is not blocked"),
			)
			_ = p.cmd.Process.Kill()
			<-p.done
		}
	})
	return p.Wait()
}

// Wait blocks until ffmpeg exits. A non-zero exit, including a missing
// capture device or denied screen-recording permission, is reported as an
// external tool failure.
func (p *Process) Wait() error {
	<-p.done
	if p.err != nil {
		detail := strings.TrimSpace(p.tail.String())
		if detail == "" {
			detail = "ffmpeg capture exited"
		}
		return services.Wrap(services.ErrExternalTool, stepName, "ffmpeg", detail, p.err)
	}
	return nil
}

// tailWriter keeps the last limit bytes written to it. Writes come from the
// exec copier goroutine and reads happen after Wait.
type tailWriter struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.limit {
		w.buf = w.buf[len(w.buf)-w.limit:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}
