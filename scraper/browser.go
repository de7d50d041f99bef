package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/themehraaryan/costtofly/logger"
)

// PageSession is one isolated browser session. Each site scraper gets its
// own session and never shares it; the orchestrator guarantees Close runs
// whatever happened inside the scraper.
type PageSession interface {
	OpenPage(timeout time.Duration) (*Page, context.CancelFunc, error)
	Close()
}

type chromeSession struct {
	cfg Config
	log logger.Logger

	allocCtx     context.Context
	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc
}

// newChromeSession starts a Chrome instance configured against automation
// detection: AutomationControlled disabled, a realistic desktop user agent,
// desktop window size, notification and popup prompts suppressed.
func newChromeSession(ctx context.Context, cfg Config, log logger.Logger) (PageSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("no-first-run", true),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		cfg:          cfg,
		log:          log,
		allocCtx:     allocCtx,
		browserCtx:   browserCtx,
		cancelAlloc:  cancelAlloc,
		cancelBrowse: cancelBrowse,
	}

	if cfg.WarmupURL != "" {
		if err := s.warmup(); err != nil {
			s.Close()
			return nil, fmt.Errorf("browser warm-up: %w", err)
		}
	}
	return s, nil
}

// warmup visits a neutral page first so the fresh profile has history and
// cookies before the first travel-site navigation.
func (s *chromeSession) warmup() error {
	warmCtx, cancel := context.WithTimeout(s.browserCtx, s.cfg.WarmupTimeout)
	defer cancel()

	if err := chromedp.Run(warmCtx,
		chromedp.Navigate(s.cfg.WarmupURL),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		return err
	}

	var found bool
	if err := chromedp.Run(warmCtx, chromedp.Evaluate(
		`document.querySelector("textarea[name='q'], input[name='q']") !== null`, &found,
	)); err != nil {
		return err
	}
	if !found {
		s.log.Warn("warm-up page loaded without a search box, continuing", "url", s.cfg.WarmupURL)
	} else {
		s.log.Info("browser session ready", "warmup", s.cfg.WarmupURL)
	}
	return nil
}

func (s *chromeSession) OpenPage(timeout time.Duration) (*Page, context.CancelFunc, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	timedCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	cancel := func() {
		cancelTimeout()
		cancelTab()
	}
	page := &Page{
		ctx:          timedCtx,
		log:          s.log,
		logsDir:      s.cfg.LogsDir,
		debugCapture: s.cfg.DebugCapture,
	}
	return page, cancel, nil
}

// Close tears the session down. Teardown problems are logged and swallowed,
// never propagated to the caller.
func (s *chromeSession) Close() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("browser teardown panicked", "reason", r)
		}
	}()
	s.cancelBrowse()
	s.cancelAlloc()
	s.log.Info("browser session terminated")
}
