package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"demoreel/internal/config"
	"demoreel/internal/logging"
	"demoreel/internal/services"
)

// Driver launches Chrome and opens pages for scripted runs.
type Driver struct {
	logger            *slog.Logger
	bin               string
	headless          bool
	width             int
	height            int
	navigationTimeout time.Duration
}

// NewDriver builds a Driver from the browser configuration.
func NewDriver(cfg *config.Config, logger *slog.Logger) *Driver {
	d := &Driver{
		logger:            logging.NewComponentLogger(logger, "browser"),
		headless:          true,
		width:             1920,
		height:            1080,
		navigationTimeout: 30 * time.Second,
	}
	if cfg != nil {
		d.bin = cfg.Browser.Bin
		d.headless = cfg.Browser.Headless
		d.width = cfg.Browser.ViewportWidth
		d.height = cfg.Browser.ViewportHeight
		if cfg.Browser.NavigationTimeoutSeconds > 0 {
			d.navigationTimeout = time.Duration(cfg.Browser.NavigationTimeoutSeconds) * time.Second
		}
	}
	return d
}

// Headed returns a copy of d that always shows the browser window. Screen
// capture records the desktop, so the page has to be visible.
func (d *Driver) Headed() *Driver {
	clone := *d
	clone.headless = false
	return &clone
}

// ResolveBin returns the Chrome executable to launch. An explicit bin wins;
// otherwise the usual install locations are searched.
func ResolveBin(bin string) (string, bool) {
	if bin != "" {
		return bin, true
	}
	return launcher.LookPath()
}

// newLauncher configures the Chrome launch. Without a local install the
// launcher fetches a browser into rod's cache on first use and returns an
// empty bin.
func (d *Driver) newLauncher() (*launcher.Launcher, string) {
	l := launcher.New().Headless(d.headless)
	bin, ok := ResolveBin(d.bin)
	if !ok {
		return l, ""
	}
	return l.Bin(bin), bin
}

// Session is an open Chrome page.
type Session struct {
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page

	closeOnce sync.Once
}

// Open launches Chrome, sizes the viewport and navigates to target, which
// may be a URL or a local HTML file.
func (d *Driver) Open(ctx context.Context, target string) (*Session, error) {
	targetURL, err := TargetURL(target)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stepName, "target", target, err)
	}
	l, bin := d.newLauncher()
	if bin == "" {
		logging.WithContext(ctx, d.logger).Info("chrome not found locally; using the downloaded browser",
			logging.String(logging.FieldEventType, "browser_download"),
		)
	}
	controlURL, err := l.Launch()
	if err != nil {
		if bin == "" {
			return nil, services.Wrap(services.ErrNotFound, stepName, "launch", "chrome not found and download failed; set browser.bin", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stepName, "launch", bin, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, services.Wrap(services.ErrExternalTool, stepName, "connect", controlURL, err)
	}
	session := &Session{launch: l, browser: browser}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = session.Close()
		return nil, services.Wrap(services.ErrExternalTool, stepName, "create page", "", err)
	}
	session.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             d.width,
		Height:            d.height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "failed to set viewport", "viewport_failed",
			logging.Error(err),
		)
	}

	navCtx, cancel := context.WithTimeout(ctx, d.navigationTimeout)
	defer cancel()
	if err := session.Page().Navigate(navCtx, targetURL); err != nil {
		_ = session.Close()
		return nil, services.Wrap(services.ErrExternalTool, stepName, "navigate", targetURL, err)
	}
	logging.WithContext(ctx, d.logger).Info("browser ready",
		logging.String("target", targetURL),
		logging.Bool("headless", d.headless),
		logging.Int("viewport_width", d.width),
		logging.Int("viewport_height", d.height),
	)
	return session, nil
}

// Page returns the scripted-interaction view of the session.
func (s *Session) Page() Page {
	return &rodPage{page: s.page}
}

// Frames returns the session's screencast source.
func (s *Session) Frames() FrameSource {
	return &screencast{page: s.page}
}

// Close shuts the page, the browser and the Chrome process.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.browser != nil {
			err = s.browser.Close()
		}
		if s.launch != nil {
			s.launch.Kill()
			s.launch.Cleanup()
		}
	})
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	return el, nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) Hover(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Hover()
}

func (p *rodPage) Type(ctx context.Context, selector, text string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (p *rodPage) Scroll(ctx context.Context, selector string, pixels float64) error {
	if selector == "" {
		return p.page.Context(ctx).Mouse.Scroll(0, pixels, 8)
	}
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.ScrollIntoView()
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.WaitVisible()
}

// screencast streams JPEG frames through the DevTools screencast API.
type screencast struct {
	page *rod.Page
}

func (s *screencast) StartFrames(ctx context.Context, onFrame func([]byte)) (func() error, error) {
	if s.page == nil {
		return nil, errors.New("screencast: no page")
	}
	frameCtx, cancel := context.WithCancel(ctx)
	page := s.page.Context(frameCtx)
	wait := page.EachEvent(func(e *proto.PageScreencastFrame) {
		onFrame(e.Data)
		_ = proto.PageScreencastFrameAck{SessionID: e.SessionID}.Call(page)
	})
	if err := (proto.PageStartScreencast{Format: proto.PageStartScreencastFormatJpeg}).Call(page); err != nil {
		cancel()
		return nil, fmt.Errorf("start screencast: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	stop := func() error {
		err := proto.PageStopScreencast{}.Call(s.page)
		cancel()
		<-done
		return err
	}
	return stop, nil
}
