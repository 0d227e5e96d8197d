package browser

import (
	"fmt"
	"path/filepath"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

// exit codes of the debug navigation
const (
	ExitOK          = 0
	ExitUnreachable = 2 // neither the reference site nor the target opened
	ExitUnexpected  = 3
)

// ReferenceURL is opened first to tell a blocked network from a broken target
const ReferenceURL = "https://example.com"

// Navigation is the outcome of one debug navigation
type Navigation struct {
	URL      string
	Status   int
	FinalURL string
	Title    string
	Err      error
}

// NavReport is what DebugNavigate found
type NavReport struct {
	Reference  Navigation
	Target     Navigation
	Screenshot string
}

// ExitCode is ExitUnreachable when both navigations failed
func (r NavReport) ExitCode() int {
	if r.Reference.Err != nil && r.Target.Err != nil {
		return ExitUnreachable
	}
	return ExitOK
}

// DebugNavigate opens the reference site and then the base url in the session, logging status, url and
// title of each, and saves a screenshot to <reports>/debug-screenshot.png. The returned error
// means something beyond navigation went wrong.
func DebugNavigate(s *Session, base string, timeout time.Duration) (rep NavReport, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("debug navigation panic: %v", x)
		}
	}()

	log.Printf("[INFO] debug navigation starting, base=%s", base)
	s.Page.OnClose(func(playwright.Page) { log.Printf("[WARN] page close event emitted") })
	s.Page.OnCrash(func(playwright.Page) { log.Printf("[ERROR] page crash event emitted") })

	rep.Reference = tryNavigate(s.Page, ReferenceURL, timeout)
	if rep.Reference.Err != nil {
		log.Printf("[WARN] %s navigation failed, local environment may block traffic or browser is unstable", ReferenceURL)
	}
	rep.Target = tryNavigate(s.Page, base, timeout)

	path := filepath.Join(s.reportsDir, "debug-screenshot.png")
	if e := s.screenshot(path); e != nil {
		log.Printf("[WARN] screenshot failed, %v", e)
	} else {
		rep.Screenshot = path
		log.Printf("[INFO] saved screenshot to %s", path)
	}
	log.Printf("[DEBUG] final page closed: %v, browser connected: %v", s.Page.IsClosed(), s.browser.IsConnected())
	return rep, nil
}

func tryNavigate(page playwright.Page, url string, timeout time.Duration) Navigation {
	log.Printf("[INFO] attempting navigation to %s", url)
	nav := Navigation{URL: url}
	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		nav.Err = err
		log.Printf("[WARN] navigation to %s failed, %v, page closed: %v", url, err, page.IsClosed())
		return nav
	}
	if resp != nil {
		nav.Status = resp.Status()
	}
	nav.FinalURL = page.URL()
	if nav.Title, err = page.Title(); err != nil {
		log.Printf("[WARN] can't read title of %s, %v", url, err)
	}
	log.Printf("[INFO] navigation status %d, url %s, title %q", nav.Status, nav.FinalURL, nav.Title)
	return nav
}
