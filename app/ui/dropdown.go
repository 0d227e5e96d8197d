package ui

import (
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

const (
	listboxSelector     = `[role="listbox"], [role="menu"]`
	highlightedSelector = `[role="option"][data-highlighted], [role="option"][aria-selected="true"]`
	maxKeyboardSteps    = 20
)

// Dropdown drives combobox selects anchored to a form label
type Dropdown struct {
	page playwright.Page
}

// NewDropdown makes Dropdown for the page
func NewDropdown(page playwright.Page) *Dropdown {
	return &Dropdown{page: page}
}

// container returns the parent element of the label, where the trigger and the value live
func (d *Dropdown) container(label string) playwright.Locator {
	return d.page.Locator("label:has-text(" + q(label) + ")").First().Locator("..")
}

func (d *Dropdown) option(text string) playwright.Locator {
	return d.page.Locator(`[role="option"]:has-text(` + q(text) + `)`).First()
}

// Open clicks the combobox next to the label and waits for the option list
func (d *Dropdown) Open(label string) (playwright.Locator, error) {
	trigger := d.container(label).Locator(`button[role="combobox"]`).First()
	if err := trigger.WaitFor(visibleOpts(waitDefault)); err != nil {
		return nil, fmt.Errorf("dropdown %q trigger: %w", label, err)
	}
	if err := trigger.Click(); err != nil {
		return nil, fmt.Errorf("click dropdown %q: %w", label, err)
	}
	if _, err := d.page.WaitForSelector(listboxSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(waitDefault),
	}); err != nil {
		return nil, fmt.Errorf("dropdown %q list: %w", label, ErrNotOpen)
	}
	return trigger, nil
}

// SelectByKeyboard opens the dropdown and walks the options with ArrowDown until the wanted one
// is highlighted, then confirms it with Enter.
func (d *Dropdown) SelectByKeyboard(label, option string) error {
	if _, err := d.Open(label); err != nil {
		return fmt.Errorf("select %q in %q: %w", option, label, err)
	}
	if err := d.option(option).WaitFor(visibleOpts(waitDefault)); err != nil {
		_ = d.Close()
		return fmt.Errorf("option %q in %q: %w", option, label, ErrNotFound)
	}

	kb := d.page.Keyboard()
	if err := kb.Press("ArrowDown"); err != nil {
		return fmt.Errorf("keyboard navigation in %q: %w", label, err)
	}
	d.page.WaitForTimeout(pauseDefault)

	highlighted := d.page.Locator(highlightedSelector).First()
	for i := 0; i < maxKeyboardSteps; i++ {
		if strings.Contains(textOf(highlighted), option) {
			if err := kb.Press("Enter"); err != nil {
				return fmt.Errorf("confirm %q in %q: %w", option, label, err)
			}
			d.page.WaitForTimeout(pauseDefault)
			return nil
		}
		if err := kb.Press("ArrowDown"); err != nil {
			return fmt.Errorf("keyboard navigation in %q: %w", label, err)
		}
		d.page.WaitForTimeout(pauseShort)
	}
	_ = d.Close()
	return fmt.Errorf("option %q in %q not reached in %d steps: %w", option, label, maxKeyboardSteps, ErrNotFound)
}

// SelectByTyping opens the dropdown, types the first letter of the option to narrow the list and
// takes the first match.
func (d *Dropdown) SelectByTyping(label, option string) error {
	if option == "" {
		return fmt.Errorf("empty option for %q", label)
	}
	if _, err := d.Open(label); err != nil {
		return fmt.Errorf("select %q in %q by typing: %w", option, label, err)
	}
	kb := d.page.Keyboard()
	if err := kb.Type(option[:1], playwright.KeyboardTypeOptions{Delay: playwright.Float(100)}); err != nil {
		return fmt.Errorf("type into %q: %w", label, err)
	}
	d.page.WaitForTimeout(pauseDefault)
	if err := d.option(option).WaitFor(visibleOpts(3000)); err != nil {
		_ = d.Close()
		return fmt.Errorf("option %q in %q: %w", option, label, ErrNotFound)
	}
	if err := kb.Press("ArrowDown"); err != nil {
		return err
	}
	d.page.WaitForTimeout(pauseShort)
	if err := kb.Press("Enter"); err != nil {
		return err
	}
	d.page.WaitForTimeout(pauseDefault)
	return nil
}

// SelectByClick picks the option with the pointer and verifies the trigger shows it afterwards
func (d *Dropdown) SelectByClick(label, option string) error {
	if _, err := d.Open(label); err != nil {
		return fmt.Errorf("select %q in %q: %w", option, label, err)
	}
	menu := d.page.Locator(listboxSelector).First()
	if err := menu.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("dropdown %q menu: %w", label, ErrNotOpen)
	}
	opt := menu.Locator(`[role="option"]:has-text(` + q(option) + `)`).First()
	if err := opt.WaitFor(visibleOpts(3000)); err != nil {
		_ = d.Close()
		return fmt.Errorf("option %q in %q: %w", option, label, ErrNotFound)
	}
	if err := opt.Click(); err != nil {
		return fmt.Errorf("click option %q: %w", option, err)
	}
	d.page.WaitForTimeout(pauseDefault)

	selected, err := d.SelectedValue(label)
	if err != nil {
		return err
	}
	if !strings.Contains(selected, option) {
		return fmt.Errorf("dropdown %q shows %q instead of %q: %w", label, selected, option, ErrMismatch)
	}
	return nil
}

// SelectedValue returns the text currently shown in the trigger
func (d *Dropdown) SelectedValue(label string) (string, error) {
	val, err := d.container(label).Locator(`[data-slot="select-value"]`).First().TextContent()
	if err != nil {
		return "", fmt.Errorf("selected value of %q: %w", label, err)
	}
	return strings.TrimSpace(val), nil
}

// IsOptionAvailable opens the dropdown, checks the option presence and closes it again
func (d *Dropdown) IsOptionAvailable(label, option string) bool {
	if _, err := d.Open(label); err != nil {
		log.Printf("[DEBUG] dropdown %q not available, %v", label, err)
		return false
	}
	visible := isVisible(d.option(option))
	_ = d.Close()
	return visible
}

// Close dismisses an open dropdown
func (d *Dropdown) Close() error {
	if err := d.page.Keyboard().Press("Escape"); err != nil {
		return fmt.Errorf("close dropdown: %w", err)
	}
	d.page.WaitForTimeout(pauseDefault)
	return nil
}

// Options lists option texts of the dropdown
func (d *Dropdown) Options(label string) ([]string, error) {
	if _, err := d.Open(label); err != nil {
		return nil, fmt.Errorf("options of %q: %w", label, err)
	}
	texts, err := d.page.Locator(`[role="option"]`).AllTextContents()
	_ = d.Close()
	if err != nil {
		return nil, fmt.Errorf("options of %q: %w", label, err)
	}
	return cleanTexts(texts), nil
}

// cleanTexts trims texts and drops empty ones
func cleanTexts(texts []string) []string {
	res := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			res = append(res, t)
		}
	}
	return res
}
