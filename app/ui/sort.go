package ui

import (
	"fmt"
	"regexp"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

const (
	sortMenuSelector = "div.py-1"
	rowsSelector     = `tbody tr, [role="row"]:not([role="columnheader"])`
	sortOpenAttempts = 3
	sortScanRows     = 10
)

var (
	reSortButton    = regexp.MustCompile(`(?i)^\s*Sort:`)
	reSortIndicator = regexp.MustCompile(`(?i)^\s*Sort(:| By:)`)
)

// Sort drives the "Sort: ..." menu of list screens
type Sort struct {
	page playwright.Page
}

// NewSort makes Sort for the page
func NewSort(page playwright.Page) *Sort {
	return &Sort{page: page}
}

func (s *Sort) button(re *regexp.Regexp) playwright.Locator {
	return s.page.Locator("button").Filter(playwright.LocatorFilterOptions{HasText: re}).First()
}

// Open clicks the sort button until the menu shows up
func (s *Sort) Open() error {
	btn := s.button(reSortButton)
	if err := btn.WaitFor(visibleOpts(waitLong)); err != nil {
		return fmt.Errorf("sort button: %w", err)
	}
	if err := btn.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll to sort button: %w", err)
	}
	menu := s.page.Locator(sortMenuSelector).First()
	for attempt := 1; attempt <= sortOpenAttempts; attempt++ {
		if err := btn.Click(playwright.LocatorClickOptions{Force: playwright.Bool(true), Delay: playwright.Float(100)}); err != nil {
			log.Printf("[DEBUG] sort button click %d failed, %v", attempt, err)
		}
		s.page.WaitForTimeout(pauseLong)
		if isVisible(menu) {
			return nil
		}
	}
	return fmt.Errorf("sort menu after %d attempts: %w", sortOpenAttempts, ErrNotOpen)
}

// Options lists the options of the open sort menu and closes it
func (s *Sort) Options() ([]string, error) {
	texts, err := s.page.Locator(sortMenuSelector + " button span.text-sm").AllTextContents()
	_ = s.Close()
	if err != nil {
		return nil, fmt.Errorf("sort options: %w", err)
	}
	return cleanTexts(texts), nil
}

// IsOpen checks whether the sort menu is shown
func (s *Sort) IsOpen() bool {
	return isVisible(s.page.Locator(sortMenuSelector).First())
}

// Close dismisses the menu
func (s *Sort) Close() error {
	if err := s.page.Keyboard().Press("Escape"); err != nil {
		return fmt.Errorf("close sort menu: %w", err)
	}
	s.page.WaitForTimeout(pauseDefault)
	return nil
}

// Select opens the menu and clicks the option
func (s *Sort) Select(option string) error {
	if err := s.Open(); err != nil {
		return err
	}
	opt := s.page.Locator(sortMenuSelector + " button").Filter(playwright.LocatorFilterOptions{HasText: option}).First()
	if err := opt.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("sort option %q: %w", option, ErrNotFound)
	}
	if err := opt.Click(); err != nil {
		return fmt.Errorf("click sort option %q: %w", option, err)
	}
	s.page.WaitForTimeout(1000)
	return nil
}

// Indicator returns the text of the sort button, e.g. "Sort: Newest"
func (s *Sort) Indicator() (string, error) {
	txt, err := s.button(reSortIndicator).TextContent()
	if err != nil {
		return "", fmt.Errorf("sort indicator: %w", err)
	}
	return strings.TrimSpace(txt), nil
}

// IsApplied checks the indicator mentions the option
func (s *Sort) IsApplied(option string) bool {
	ind, err := s.Indicator()
	return err == nil && strings.Contains(ind, option)
}

// VerifyOrder reads up to 10 rows of the column (0-based td index) and checks their order
// matches the option direction.
func (s *Sort) VerifyOrder(option string, column int) (bool, error) {
	s.page.WaitForTimeout(1500)
	rows := s.page.Locator(rowsSelector).Filter(playwright.LocatorFilterOptions{HasNotText: "No "})
	count, err := rows.Count()
	if err != nil {
		return false, fmt.Errorf("count rows: %w", err)
	}
	if count < 2 {
		return true, nil
	}

	values := make([]string, 0, sortScanRows)
	for i := 0; i < min(count, sortScanRows); i++ {
		cells := rows.Nth(i).Locator("td")
		n, err := cells.Count()
		if err != nil || n <= column {
			continue
		}
		if v := textOf(cells.Nth(column)); v != "" {
			values = append(values, strings.ToLower(v))
		}
	}
	return isSorted(values, IsDescending(option)), nil
}

// IsDescending tells the direction of a sort option: "(Z-A)" options and "Oldest" sort descending
func IsDescending(option string) bool {
	return strings.Contains(option, "(Z-A)") || option == "Oldest"
}

// isSorted checks the values are ordered, lists shorter than 2 are sorted
func isSorted(values []string, desc bool) bool {
	for i := 0; i+1 < len(values); i++ {
		if desc && values[i] < values[i+1] {
			return false
		}
		if !desc && values[i] > values[i+1] {
			return false
		}
	}
	return true
}
