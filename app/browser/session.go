// Package browser manages the playwright side of a run: driver, browser, context and page per
// scenario, the reachability preflight of the target, failure screenshots and debug navigation.
package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/config"
)

// Options define how the browser is launched
type Options struct {
	Browser    config.Browser
	Timeout    time.Duration // default timeout of page actions
	NavTimeout time.Duration
	ReportsDir string
	Install    bool // install the browser before launch
}

// OptionsFromProfile makes launch options from the run profile
func OptionsFromProfile(p *config.Profile) Options {
	return Options{
		Browser:    p.Browser,
		Timeout:    p.Timeouts.Default,
		NavTimeout: p.Timeouts.Navigation,
		ReportsDir: p.ReportsDir,
	}
}

// Session is one scenario's browser: it owns the browser, context and page and, when started by
// Start, the playwright driver too
type Session struct {
	Page playwright.Page

	pw         *playwright.Playwright
	ownDriver  bool
	browser    playwright.Browser
	context    playwright.BrowserContext
	reportsDir string
	now        func() time.Time
}

// Start runs the playwright driver and opens a new session on it, the driver is stopped by Close
func Start(opts Options) (*Session, error) {
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{browserName(opts.Browser.Name)}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	s, err := StartWith(pw, opts)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}
	s.ownDriver = true
	return s, nil
}

// StartWith opens a new session on a running driver, used when many scenarios share one driver
func StartWith(pw *playwright.Playwright, opts Options) (*Session, error) {
	headless := opts.Browser.Headless && !opts.Browser.Debug
	log.Printf("[INFO] launching %s, headless=%v, slowmo=%v, debug=%v",
		browserName(opts.Browser.Name), headless, opts.Browser.SlowMo, opts.Browser.Debug)

	brow, err := browserType(pw, opts.Browser.Name).Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		SlowMo:   playwright.Float(float64(opts.Browser.SlowMo.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := brow.NewContext()
	if err != nil {
		_ = brow.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = brow.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}
	if opts.NavTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(opts.NavTimeout.Milliseconds()))
	}
	watch(page)
	log.Printf("[DEBUG] new playwright page created")

	reports := opts.ReportsDir
	if reports == "" {
		reports = "reports"
	}
	return &Session{Page: page, pw: pw, browser: brow, context: bctx, reportsDir: reports, now: time.Now}, nil
}

// CaptureFailure saves a full page screenshot to <reports>/failed-<unix-ms>.png and returns its path
func (s *Session) CaptureFailure() (string, error) {
	path := failurePath(s.reportsDir, s.now())
	if err := s.screenshot(path); err != nil {
		return "", err
	}
	log.Printf("[WARN] failure screenshot saved to %s", path)
	return path, nil
}

// Finish is the after-scenario hook: screenshot on failure, then close everything.
// Screenshot problems are logged and don't prevent closing.
func (s *Session) Finish(failed bool) error {
	if failed {
		if _, err := s.CaptureFailure(); err != nil {
			log.Printf("[WARN] can't capture failure, %v", err)
		}
	}
	return s.Close()
}

// Close disposes the page, context and browser, and stops the driver if the session owns it
func (s *Session) Close() error {
	var errs []error
	if s.Page != nil && !s.Page.IsClosed() {
		if err := s.Page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.ownDriver && s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("make reports dir: %w", err)
	}
	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return fmt.Errorf("screenshot %s: %w", path, err)
	}
	return nil
}

// watch forwards console messages, page errors and failed requests to the log
func watch(page playwright.Page) {
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		log.Printf("[DEBUG] console %s: %s", msg.Type(), msg.Text())
	})
	page.OnPageError(func(err error) {
		log.Printf("[WARN] page error: %v", err)
	})
	page.OnRequestFailed(func(req playwright.Request) {
		reason := "no details"
		if err := req.Failure(); err != nil {
			reason = err.Error()
		}
		log.Printf("[WARN] request failed: %s %s, %s", req.Method(), req.URL(), reason)
	})
}

func failurePath(dir string, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("failed-%d.png", ts.UnixMilli()))
}

func browserName(name string) string {
	if name == "" {
		return config.Chromium
	}
	return name
}

func browserType(pw *playwright.Playwright, name string) playwright.BrowserType {
	switch name {
	case config.Firefox:
		return pw.Firefox
	case config.WebKit:
		return pw.WebKit
	default:
		return pw.Chromium
	}
}
