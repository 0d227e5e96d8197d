package ui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

const (
	calendarSelector = `[role="dialog"], [role="grid"], button[class*="rdp"]`
	nextMonthButton  = `button[aria-label="Go to the Next Month"]`
	prevMonthButton  = `button[aria-label="Go to the Previous Month"]`
	maxMonthSteps    = 25
	isoDate          = "2006-01-02"
)

var reMonthYear = regexp.MustCompile(`([A-Za-z]+)\s+(\d{4})`)

// DatePicker sets dates in rdp-style calendar popups and typed date inputs
type DatePicker struct {
	page playwright.Page
}

// NewDatePicker makes DatePicker for the page
func NewDatePicker(page playwright.Page) *DatePicker {
	return &DatePicker{page: page}
}

// SetByLabel opens the calendar next to the label and picks the date, given as YYYY-MM-DD
func (p *DatePicker) SetByLabel(label, date string) error {
	return p.setDate(label, p.page.Locator("label:has-text("+q(label)+")"), date)
}

// SetByParagraph is SetByLabel for labels wrapping their caption into a <p>
func (p *DatePicker) SetByParagraph(text, date string) error {
	return p.setDate(text, p.page.Locator("label:has(p:has-text("+q(text)+"))"), date)
}

// SetBySection picks the date for a label inside the section titled by an h3, used by filter
// dialogs where the same label ("From", "To") repeats per section.
func (p *DatePicker) SetBySection(section, label, date string) error {
	lbl := p.page.Locator("h3:has-text(" + q(section) + ")").First().Locator("..").
		Locator("label:has-text(" + q(label) + ")")
	return p.setDate(section+"/"+label, lbl, date)
}

// SetByTyping fills the plain date input next to the label, the input expects DD/MM/YYYY
func (p *DatePicker) SetByTyping(label, date string) error {
	t, err := time.Parse(isoDate, date)
	if err != nil {
		return fmt.Errorf("bad date %q for %q: %w", date, label, err)
	}
	input := p.page.Locator("label:has-text(" + q(label) + ")").First().Locator("..").Locator(`input[id="date"]`)
	if err := input.Fill(t.Format("02/01/2006")); err != nil {
		return fmt.Errorf("fill date %q: %w", label, err)
	}
	return nil
}

// SetScheduleDate picks the date for trip forms and, when timeOfDay is set, fills the time input
// of the same field.
func (p *DatePicker) SetScheduleDate(label, date, timeOfDay string) error {
	lbl := p.page.Locator("label:has-text(" + q(label) + ")")
	if err := p.setDate(label, lbl, date); err != nil {
		return err
	}
	if timeOfDay == "" {
		return nil
	}
	timeInput := lbl.First().Locator("..").Locator(`input[type="time"]`).First()
	if n, err := timeInput.Count(); err != nil || n == 0 {
		return fmt.Errorf("time input for %q: %w", label, ErrNotFound)
	}
	if err := timeInput.Fill(timeOfDay); err != nil {
		return fmt.Errorf("fill time for %q: %w", label, err)
	}
	return nil
}

// Selected returns the date text shown on the trigger of the label
func (p *DatePicker) Selected(label string) (string, error) {
	btn := p.page.Locator("label:has-text(" + q(label) + ")").First().Locator("..").
		Locator(`button[aria-haspopup="dialog"]`).First()
	s, err := btn.TextContent()
	if err != nil {
		return "", fmt.Errorf("selected date of %q: %w", label, err)
	}
	return strings.TrimSpace(s), nil
}

func (p *DatePicker) setDate(name string, label playwright.Locator, date string) error {
	target, err := time.Parse(isoDate, date)
	if err != nil {
		return fmt.Errorf("bad date %q for %q: %w", date, name, err)
	}
	if n, err := label.Count(); err != nil || n == 0 {
		return fmt.Errorf("label %q: %w", name, ErrNotFound)
	}

	trigger := label.First().Locator("..").Locator(`button[aria-haspopup="dialog"]`).First()
	if n, err := trigger.Count(); err != nil || n == 0 {
		return fmt.Errorf("date trigger for %q: %w", name, ErrNotFound)
	}
	if err := trigger.Click(); err != nil {
		return fmt.Errorf("open calendar %q: %w", name, err)
	}
	if _, err := p.page.WaitForSelector(calendarSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(3000),
	}); err != nil {
		return fmt.Errorf("calendar for %q: %w", name, ErrNotOpen)
	}
	p.page.WaitForTimeout(pauseLong)

	if err := p.navigateTo(target); err != nil {
		return fmt.Errorf("navigate calendar %q: %w", name, err)
	}

	cell := p.page.Locator(`button[data-day="` + dayCellKey(target) + `"]`).First()
	if n, err := cell.Count(); err != nil || n == 0 {
		return fmt.Errorf("day cell %s: %w", dayCellKey(target), ErrNotFound)
	}
	if err := cell.Click(); err != nil {
		return fmt.Errorf("click day %s: %w", dayCellKey(target), err)
	}
	p.page.WaitForTimeout(pauseLong)
	log.Printf("[DEBUG] date %s set for %q", date, name)
	return nil
}

// navigateTo pages the open calendar until its caption shows the month of target
func (p *DatePicker) navigateTo(target time.Time) error {
	caption, err := firstPresent("calendar caption",
		func() playwright.Locator { return p.page.Locator(`[role="dialog"] [aria-live="polite"]`).First() },
		func() playwright.Locator { return p.page.Locator(`[role="dialog"] .rdp-caption_label`).First() },
		func() playwright.Locator { return p.page.Locator(`text=/[A-Za-z]+ \d{4}/`).First() },
	)
	if err != nil {
		return err
	}

	for i := 0; i < maxMonthSteps; i++ {
		month, year, err := parseMonthYear(textOf(caption))
		if err != nil {
			return err
		}
		step := monthStep(month, year, target.Month(), target.Year())
		if step == 0 {
			return nil
		}
		arrow := p.page.Locator(nextMonthButton).First()
		if step < 0 {
			arrow = p.page.Locator(prevMonthButton).First()
		}
		if n, err := arrow.Count(); err != nil || n == 0 {
			return fmt.Errorf("month arrow: %w", ErrNotFound)
		}
		if err := arrow.Click(); err != nil {
			return fmt.Errorf("click month arrow: %w", err)
		}
		p.page.WaitForTimeout(400)
	}
	return fmt.Errorf("%s not reached in %d steps: %w", target.Format("January 2006"), maxMonthSteps, ErrNotFound)
}

// parseMonthYear extracts month and year from a calendar caption like "March 2026"
func parseMonthYear(caption string) (time.Month, int, error) {
	m := reMonthYear.FindStringSubmatch(caption)
	if m == nil {
		return 0, 0, fmt.Errorf("no month in caption %q", caption)
	}
	t, err := time.Parse("January", m[1]) // month names match case-insensitively
	if err != nil {
		return 0, 0, fmt.Errorf("unknown month %q in caption %q", m[1], caption)
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("bad year in caption %q: %w", caption, err)
	}
	return t.Month(), year, nil
}

// monthStep tells which way to page the calendar: 1 forward, -1 back, 0 when already there
func monthStep(curMonth time.Month, curYear int, month time.Month, year int) int {
	cur, want := curYear*12+int(curMonth), year*12+int(month)
	switch {
	case cur < want:
		return 1
	case cur > want:
		return -1
	default:
		return 0
	}
}

// dayCellKey is the data-day attribute of a calendar cell, month/day/year without padding
func dayCellKey(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}
