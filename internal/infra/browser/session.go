package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/telemetry"
)

// Session is the process-wide headless-browser singleton. The underlying
// Chrome instance starts lazily on the first operation and is torn down by
// the idle sweep or on shutdown. A single mutex serializes operations, so
// interleaved callers observe last-navigation-wins on the shared tab.
type Session struct {
	mu sync.Mutex

	cfg     domain.BrowserConfig
	logger  *zap.Logger
	metrics domain.Metrics

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	lastUsed    time.Time
}

func NewSession(cfg domain.BrowserConfig, logger *zap.Logger, metrics domain.Metrics) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = domain.NopMetrics{}
	}
	return &Session{
		cfg:     cfg,
		logger:  logger.Named("browser"),
		metrics: metrics,
	}
}

// ensureLocked starts Chrome if it is not already running. Callers hold s.mu.
func (s *Session) ensureLocked() error {
	if s.tabCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
	)
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}

	// The session outlives any single request, so the tab hangs off the
	// background context and is torn down explicitly.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return domain.E(domain.CodeInternal, "browser.Start", "start browser", err)
	}

	s.tabCtx = tabCtx
	s.tabCancel = tabCancel
	s.allocCancel = allocCancel
	s.metrics.SetBrowserSessions(1)
	s.logger.Info("browser session started", telemetry.EventField(telemetry.EventBrowserStart))
	return nil
}

func (s *Session) run(ctx context.Context, op, detail string, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return err
	}
	s.lastUsed = time.Now()

	if err := chromedp.Run(s.tabCtx, actions...); err != nil {
		return domain.E(domain.CodeInternal, op, detail, err)
	}
	return nil
}

// Navigate loads url in the shared tab and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, "browser.Navigate", fmt.Sprintf("navigate to %s", url),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// Screenshot captures the current page to path and returns the absolute
// location of the written file. fullPage captures the entire scroll height
// instead of the viewport.
func (s *Session) Screenshot(ctx context.Context, path string, fullPage bool) (string, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}

	if err := s.run(ctx, "browser.Screenshot", "capture screenshot", action); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", domain.E(domain.CodeInvalidParams, "browser.Screenshot", fmt.Sprintf("resolve path %q", path), err)
	}
	if err := os.WriteFile(abs, buf, 0o644); err != nil {
		return "", domain.E(domain.CodeInternal, "browser.Screenshot", fmt.Sprintf("write %s", abs), err)
	}
	return abs, nil
}

// Click clicks the first visible node matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, "browser.Click", fmt.Sprintf("click %q", selector),
		chromedp.Click(selector, chromedp.NodeVisible),
	)
}

// Type sends text to the first visible node matching selector.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	return s.run(ctx, "browser.Type", fmt.Sprintf("type into %q", selector),
		chromedp.SendKeys(selector, text, chromedp.NodeVisible),
	)
}

// Content returns the outer HTML of the current document.
func (s *Session) Content(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, "browser.Content", "read page content",
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// Active reports whether a browser process is currently running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tabCtx != nil
}

// LastUsed returns the timestamp of the most recent operation. The zero
// time means the session has never started.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// CloseIfIdleFor tears the browser down when its last use is at least
// maxIdle ago. It reports whether a teardown happened.
func (s *Session) CloseIfIdleFor(maxIdle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tabCtx == nil || time.Since(s.lastUsed) < maxIdle {
		return false
	}
	s.closeLocked()
	return true
}

// Close tears the browser down immediately. Safe to call repeatedly and on
// a session that never started.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tabCtx == nil {
		return
	}
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if err := chromedp.Cancel(s.tabCtx); err != nil {
		s.logger.Warn("browser shutdown reported an error", zap.Error(err))
	}
	s.tabCancel()
	s.allocCancel()

	s.tabCtx = nil
	s.tabCancel = nil
	s.allocCancel = nil
	s.metrics.SetBrowserSessions(0)
	s.logger.Info("browser session closed", telemetry.EventField(telemetry.EventBrowserStop))
}
