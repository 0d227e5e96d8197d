// Package ui implements browser interactions shared by all fleet screens: dropdowns, date pickers,
// file inputs, filter dialogs, sort menus and the cross-check of rendered rows against api responses.
// Widgets in the application come from several component kits, so most lookups go through
// ordered fallback chains (see firstPresent).
package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrNotFound returned when none of the candidate locators matched
	ErrNotFound = errors.New("element not found")
	// ErrMismatch returned when ui state doesn't match the expected or api state
	ErrMismatch = errors.New("mismatch")
	// ErrNotOpen returned when a popup (dropdown, calendar, sort menu) didn't open
	ErrNotOpen = errors.New("popup did not open")
)

// timeouts and pauses, in milliseconds as playwright expects
const (
	pauseShort   = 200
	pauseDefault = 300
	pauseLong    = 500
	waitShort    = 2000
	waitDefault  = 5000
	waitLong     = 10000
)

// counter is the part of playwright.Locator the fallback chains need
type counter interface {
	Count() (int, error)
}

// firstPresent evaluates candidates in order and returns the first one matching at least one element.
// Candidates are lazy, the next one is built only if the previous matched nothing.
func firstPresent[T counter](what string, candidates ...func() T) (T, error) {
	for _, candidate := range candidates {
		loc := candidate()
		n, err := loc.Count()
		if err != nil {
			continue
		}
		if n > 0 {
			return loc, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s: %w", what, ErrNotFound)
}

// q quotes a value for use inside css/playwright selectors, i.e. label:has-text("Fuel Type")
func q(s string) string {
	return strconv.Quote(s)
}

func visibleOpts(timeoutMs float64) playwright.LocatorWaitForOptions {
	return playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(timeoutMs)}
}

// isVisible reports visibility, treating lookup errors as not visible
func isVisible(loc playwright.Locator) bool {
	ok, err := loc.IsVisible()
	return err == nil && ok
}

// textOf returns trimmed text content, empty on error
func textOf(loc playwright.Locator) string {
	s, err := loc.TextContent()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// isChecked reads the checked state of radix-like buttons (aria-checked, data-state) and native inputs
func isChecked(loc playwright.Locator) bool {
	tag, err := loc.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err == nil && tag == "input" {
		checked, err := loc.IsChecked()
		return err == nil && checked
	}
	if v, err := loc.GetAttribute("aria-checked"); err == nil && v == "true" {
		return true
	}
	if v, err := loc.GetAttribute("data-state"); err == nil && v == "checked" {
		return true
	}
	return false
}

func forceClick(loc playwright.Locator) error {
	return loc.Click(playwright.LocatorClickOptions{Force: playwright.Bool(true)})
}
