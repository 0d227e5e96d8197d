package ui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

// FilterKind selects the control type used by Filter.Select
type FilterKind int

// filter control kinds, FilterAuto detects the kind from the dialog markup
const (
	FilterAuto FilterKind = iota
	FilterRadio
	FilterCheckbox
	FilterDropdown
)

const (
	popoverTriggerChain = `button[role="combobox"], button[aria-haspopup="listbox"], button[aria-haspopup], ` +
		`button[aria-haspopup="dialog"], button[data-slot="popover-trigger"]`
	searchbarSelector  = ".searchbar-container"
	listOptionAncestor = `xpath=ancestor::div[contains(@class, "list-option")]`
)

var reFilterWord = regexp.MustCompile(`(?i)Filter`)

// Filter drives the "Filter" dialog of list screens
type Filter struct {
	page     playwright.Page
	dropdown *Dropdown
}

// NewFilter makes Filter for the page
func NewFilter(page playwright.Page) *Filter {
	return &Filter{page: page, dropdown: NewDropdown(page)}
}

// Dialog resolves the open filter dialog
func (f *Filter) Dialog() (playwright.Locator, error) {
	dlg, err := firstPresent("filter dialog",
		func() playwright.Locator {
			return f.page.Locator(`[role="dialog"]`).Filter(playwright.LocatorFilterOptions{HasText: reFilterWord}).First()
		},
		func() playwright.Locator {
			return f.page.Locator(`h2:has-text("Filter"), h3:has-text("Filter")`).First().
				Locator(`xpath=ancestor::div[@role="dialog"] | ancestor::div[contains(@class,"dialog")] | ancestor::div[contains(@class,"modal")]`).First()
		},
		func() playwright.Locator { return f.page.Locator(`[role="dialog"]:visible`).First() },
	)
	if err != nil {
		return nil, err
	}
	if err := dlg.WaitFor(visibleOpts(waitDefault)); err != nil {
		return nil, fmt.Errorf("filter dialog: %w", ErrNotOpen)
	}
	return dlg, nil
}

// Open clicks the button with the given text or aria-label ("Filter" by default) and waits for the dialog
func (f *Filter) Open(button string) error {
	if button == "" {
		button = "Filter"
	}
	btn := f.page.Locator(`button:has-text(` + q(button) + `), button[aria-label*=` + q(button) + ` i]`).First()
	if err := btn.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("filter button %q: %w", button, err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("click filter button %q: %w", button, err)
	}
	f.page.WaitForTimeout(pauseLong)
	_, err := f.Dialog()
	return err
}

// IsVisible reports whether a filter dialog is shown
func (f *Filter) IsVisible() bool {
	return isVisible(f.page.Locator(`h2:has-text("Filter"), h3:has-text("Filter"), [role="dialog"]:has-text("Filter")`).First())
}

// Close cancels the dialog, falling back to Escape
func (f *Filter) Close() error {
	cancel := f.page.Locator(`button:has-text("Cancel")`).First()
	if isVisible(cancel) {
		if err := cancel.Click(); err == nil {
			f.page.WaitForTimeout(pauseDefault)
			return nil
		}
	}
	if err := f.page.Keyboard().Press("Escape"); err != nil {
		return fmt.Errorf("close filter dialog: %w", err)
	}
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// section finds the container of a filter group titled by a heading or a label
func (f *Filter) section(title string) (playwright.Locator, error) {
	heads := `h3:has-text(` + q(title) + `), h2:has-text(` + q(title) + `)`
	return firstPresent("filter section "+title,
		func() playwright.Locator {
			return f.page.Locator(heads + `, label:has-text(` + q(title) + `)`).Locator("..").First()
		},
		func() playwright.Locator {
			return f.page.Locator(heads).First().Locator(`xpath=ancestor::div[contains(@class, "space-y")] | ..`).First()
		},
	)
}

// SelectRadio checks the radio option of a filter group unless it's already checked
func (f *Filter) SelectRadio(title, option string) error {
	sec, err := f.section(title)
	if err != nil {
		return err
	}
	if err = sec.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("filter section %q: %w", title, err)
	}
	optLabel := sec.Locator(`label:has-text(` + q(option) + `)`).First()
	if err = optLabel.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("radio %q in %q: %w", option, title, ErrNotFound)
	}

	var radio playwright.Locator
	if id, _ := optLabel.GetAttribute("for"); id != "" {
		// attribute selector survives ids with "+" and other css specials
		radio = f.page.Locator(`[id=` + q(id) + `]`).First()
	} else {
		re, reErr := regexp.Compile("(?i)" + regexp.QuoteMeta(option))
		if reErr != nil {
			return fmt.Errorf("radio option %q: %w", option, reErr)
		}
		radio = sec.Locator(`button[role="radio"]`).Filter(playwright.LocatorFilterOptions{HasText: re}).First()
	}

	if n, cErr := radio.Count(); cErr != nil || n == 0 {
		if err = forceClick(optLabel); err != nil {
			return fmt.Errorf("click radio label %q: %w", option, err)
		}
		f.page.WaitForTimeout(pauseDefault)
		return nil
	}
	if isChecked(radio) {
		log.Printf("[DEBUG] %q already selected for %q", option, title)
		return nil
	}
	if err = forceClick(radio); err != nil {
		return fmt.Errorf("click radio %q in %q: %w", option, title, err)
	}
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// SelectCheckbox checks a checkbox of a filter group. The checkbox is looked up by the label's "for"
// attribute, a radix button next to the label, a button with the lower-cased value as id,
// and a native input nested into the label. If nothing matches the label itself is clicked.
func (f *Filter) SelectCheckbox(title, value string) error {
	sec := f.page.Locator(`h3:has-text(` + q(title) + `), h2:has-text(` + q(title) + `), label:has-text(` + q(title) + `)`).
		First().Locator(`xpath=ancestor::div[contains(@class, "space-y")] | ..`).First()
	boxLabel := sec.Locator(`label:has-text(` + q(value) + `)`).First()
	if err := boxLabel.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("checkbox %q in %q: %w", value, title, ErrNotFound)
	}

	candidates := []func() playwright.Locator{
		func() playwright.Locator { return boxLabel.Locator("..").Locator(`button[role="checkbox"]`).First() },
		func() playwright.Locator {
			return sec.Locator(`button[role="checkbox"][id=` + q(strings.ToLower(value)) + `]`).First()
		},
		func() playwright.Locator { return boxLabel.Locator(`input[type="checkbox"]`).First() },
	}
	if labelFor, _ := boxLabel.GetAttribute("for"); labelFor != "" {
		byID := func() playwright.Locator { return f.page.Locator(`[id=` + q(labelFor) + `]`).First() }
		candidates = append([]func() playwright.Locator{byID}, candidates...)
	}
	box, err := firstPresent("checkbox "+value, candidates...)
	if err != nil {
		if err = boxLabel.Click(); err != nil {
			return fmt.Errorf("click checkbox label %q: %w", value, err)
		}
		f.page.WaitForTimeout(pauseDefault)
		return nil
	}

	if !isChecked(box) {
		if err = box.Click(); err != nil {
			return fmt.Errorf("click checkbox %q in %q: %w", value, title, err)
		}
	}
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// SelectDropdown picks a value of a dropdown filter labeled by label, p or div text
func (f *Filter) SelectDropdown(label, value string) error {
	f.page.WaitForTimeout(pauseLong)
	dlg, err := f.Dialog()
	if err != nil {
		return err
	}
	lbl, err := firstPresent("dropdown filter "+label,
		func() playwright.Locator { return dlg.Locator(`label:has-text(` + q(label) + `)`).First() },
		func() playwright.Locator { return dlg.Locator(`p:has-text(` + q(label) + `)`).First() },
		func() playwright.Locator { return dlg.Locator(`div:has-text(` + q(label) + `)`).Last() },
	)
	if err != nil {
		return err
	}
	return f.pickFromDropdown(lbl, label, value)
}

// SelectDropdownByID is SelectDropdown for forms where the label is bound by id (label[for=id])
func (f *Filter) SelectDropdownByID(label, id, value string) error {
	f.page.WaitForTimeout(pauseLong)
	dlg, err := f.Dialog()
	if err != nil {
		return err
	}
	return f.pickFromDropdown(dlg.Locator(`label[for=`+q(id)+`]`).First(), label, value)
}

func (f *Filter) pickFromDropdown(lbl playwright.Locator, label, value string) error {
	if err := lbl.WaitFor(visibleOpts(waitLong)); err != nil {
		return fmt.Errorf("dropdown filter label %q: %w", label, err)
	}
	box := lbl.Locator("..")
	trigger, err := firstPresent("dropdown trigger "+label,
		func() playwright.Locator { return box.Locator(`button[role="combobox"]`).First() },
		func() playwright.Locator {
			return box.Locator(`button[aria-haspopup="listbox"], button[aria-haspopup="dialog"]`).First()
		},
		func() playwright.Locator { return box.Locator(`button[aria-haspopup]`).First() },
		func() playwright.Locator { return box.Locator("..").Locator(popoverTriggerChain).First() },
		func() playwright.Locator { return box.Locator("button").First() },
	)
	if err != nil {
		return err
	}
	if err = trigger.WaitFor(visibleOpts(waitLong)); err != nil {
		return fmt.Errorf("dropdown trigger %q: %w", label, err)
	}
	if err = trigger.Click(); err != nil {
		return fmt.Errorf("open dropdown filter %q: %w", label, err)
	}
	f.page.WaitForTimeout(pauseLong)

	if search := f.page.Locator(searchbarSelector).First(); isVisible(search) {
		return f.pickFromSearchList(search, label, value)
	}

	if _, err = f.page.WaitForSelector(listboxSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(waitDefault),
	}); err != nil {
		return fmt.Errorf("dropdown filter %q: %w", label, ErrNotOpen)
	}
	f.page.WaitForTimeout(pauseDefault)
	opt := f.page.Locator(listboxSelector).First().
		Locator(`[role="option"]:has-text(` + q(value) + `), [role="menuitem"]:has-text(` + q(value) + `)`).First()
	if err = opt.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("option %q in %q: %w", value, label, ErrNotFound)
	}
	if err = opt.Click(); err != nil {
		return fmt.Errorf("click option %q: %w", value, err)
	}
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// pickFromSearchList handles dropdowns rendered as a searchable checkbox list
func (f *Filter) pickFromSearchList(search playwright.Locator, label, value string) error {
	input := search.Locator(`input[placeholder=` + q("Search "+label) + `], input[placeholder="Search"]`).First()
	if err := input.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("search input of %q: %w", label, err)
	}
	if err := input.Fill(value); err != nil {
		return fmt.Errorf("search %q in %q: %w", value, label, err)
	}
	f.page.WaitForTimeout(pauseDefault)

	optLabel := f.page.Locator(`.option-label:text-is(` + q(value) + `)`).First()
	if err := optLabel.WaitFor(visibleOpts(9000)); err != nil {
		return fmt.Errorf("option %q in %q: %w", value, label, ErrNotFound)
	}
	box := optLabel.Locator(listOptionAncestor).First().
		Locator(`button[role="checkbox"], p:has-text(` + q(value) + `)`).First()
	if err := box.Click(); err != nil {
		return fmt.Errorf("check %q in %q: %w", value, label, err)
	}
	log.Printf("[DEBUG] selected %q for %q checkbox dropdown", value, label)
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// popover opens the .popover-trigger next to the title and returns the search popover
func (f *Filter) popover(title string, heads bool) (playwright.Locator, playwright.Locator, error) {
	sel := `label:has-text(` + q(title) + `)`
	if heads {
		sel = `h3:has-text(` + q(title) + `), h2:has-text(` + q(title) + `), ` + sel
	}
	lbl := f.page.Locator(sel).First()
	if err := lbl.WaitFor(visibleOpts(waitDefault)); err != nil {
		return nil, nil, fmt.Errorf("popover label %q: %w", title, err)
	}
	box := lbl.Locator("..")
	trigger := box.Locator(".popover-trigger").First()
	if err := trigger.WaitFor(visibleOpts(waitDefault)); err != nil {
		return nil, nil, fmt.Errorf("popover trigger %q: %w", title, err)
	}
	if err := trigger.Click(); err != nil {
		return nil, nil, fmt.Errorf("open popover %q: %w", title, err)
	}
	pop := f.page.Locator(`div[role="dialog"]`).
		Filter(playwright.LocatorFilterOptions{Has: f.page.Locator(searchbarSelector)}).First()
	if err := pop.WaitFor(visibleOpts(waitDefault)); err != nil {
		return nil, nil, fmt.Errorf("popover %q: %w", title, ErrNotOpen)
	}
	return box, pop, nil
}

// SelectRadixOption picks an option in a searchable multi-select popover and closes it
func (f *Filter) SelectRadixOption(title, option string) error {
	box, pop, err := f.popover(title, true)
	if err != nil {
		return err
	}
	input := pop.Locator(`input[placeholder="Search"], input[placeholder="Search fleet group"]`).First()
	if err = input.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("popover search %q: %w", title, err)
	}
	if err = input.Fill(option); err != nil {
		return fmt.Errorf("search %q: %w", option, err)
	}
	f.page.WaitForTimeout(pauseLong)

	opt := pop.Locator(`.option-label:text-is(` + q(option) + `)`).First()
	if err = opt.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("option %q in %q: %w", option, title, ErrNotFound)
	}
	if err = forceClick(opt.Locator(listOptionAncestor).First()); err != nil {
		return fmt.Errorf("click option %q: %w", option, err)
	}
	if arrow := box.Locator(".dropdown-arrow-icon").First(); isVisible(arrow) {
		_ = forceClick(arrow)
	}
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// SelectRadixSingle picks an option in a searchable single-select popover
func (f *Filter) SelectRadixSingle(title, option string) error {
	_, pop, err := f.popover(title, false)
	if err != nil {
		return err
	}
	input := pop.Locator(`input[placeholder="Search"]`).First()
	if err = input.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("popover search %q: %w", title, err)
	}
	if err = input.Fill(option); err != nil {
		return fmt.Errorf("search %q: %w", option, err)
	}
	f.page.WaitForTimeout(pauseDefault)
	opt := pop.Locator(`.option-label:text-is(` + q(option) + `)`).First()
	if err = opt.WaitFor(visibleOpts(waitDefault)); err != nil {
		return fmt.Errorf("option %q in %q: %w", option, title, ErrNotFound)
	}
	if err = forceClick(opt); err != nil {
		return fmt.Errorf("click option %q: %w", option, err)
	}
	f.page.WaitForTimeout(pauseDefault)
	return nil
}

// Select sets a filter value using the given control kind. FilterAuto tries radio, then checkbox
// and falls back to a dropdown.
func (f *Filter) Select(title, value string, kind FilterKind) error {
	switch kind {
	case FilterRadio:
		return f.SelectRadio(title, value)
	case FilterCheckbox:
		return f.SelectCheckbox(title, value)
	case FilterDropdown:
		return f.SelectDropdown(title, value)
	}

	sec := f.page.Locator(`label:has-text(` + q(title) + `), h3:has-text(` + q(title) + `)`).Locator("..").First()
	has := func(sel string) bool {
		n, err := sec.Locator(sel).Count()
		return err == nil && n > 0
	}
	switch {
	case has(`input[type="radio"] + label:has-text(` + q(value) + `)`), has(`button[role="radio"]`):
		return f.SelectRadio(title, value)
	case has(`input[type="checkbox"] + label:has-text(` + q(value) + `)`), has(`button[role="checkbox"]`):
		return f.SelectCheckbox(title, value)
	default:
		return f.SelectDropdown(title, value)
	}
}

// Apply clicks the Apply button of the dialog
func (f *Filter) Apply() error {
	f.page.WaitForTimeout(pauseLong)
	btn := f.page.Locator(`button:has-text("Apply")`).First()
	if err := btn.WaitFor(visibleOpts(waitLong)); err != nil {
		return fmt.Errorf("apply button: %w", err)
	}
	if err := forceClick(btn); err != nil {
		return fmt.Errorf("apply filters: %w", err)
	}
	f.page.WaitForTimeout(1000)
	return nil
}

// ClearAll clicks "Clear All" in the dialog and closes the dialog if it has a close button
func (f *Filter) ClearAll() error {
	dlg, err := f.clearAll()
	if err != nil {
		return err
	}
	if closeBtn := dlg.Locator(`button[data-slot="dialog-close"]`).First(); isVisible(closeBtn) {
		if err := closeBtn.Click(); err != nil {
			return fmt.Errorf("close filter dialog: %w", err)
		}
	}
	return nil
}

func (f *Filter) clearAll() (playwright.Locator, error) {
	dlg := f.page.Locator(`[role="dialog"]`).Filter(playwright.LocatorFilterOptions{HasText: reFilterWord}).First()
	if err := dlg.WaitFor(visibleOpts(waitLong)); err != nil {
		return nil, fmt.Errorf("filter dialog: %w", ErrNotOpen)
	}
	btn := dlg.Locator(`button:has-text("Clear All")`).First()
	if err := btn.WaitFor(visibleOpts(waitLong)); err != nil {
		return nil, fmt.Errorf("clear all button: %w", err)
	}
	if err := forceClick(btn); err != nil {
		return nil, fmt.Errorf("clear all filters: %w", err)
	}
	f.page.WaitForTimeout(1000)
	return dlg, nil
}

// ResetAll opens the dialog if needed, clears every filter and applies the empty selection
func (f *Filter) ResetAll() error {
	if !f.IsVisible() {
		if err := f.Open(""); err != nil {
			return err
		}
	}
	if _, err := f.clearAll(); err != nil {
		return err
	}
	return f.Apply()
}

// ActiveCount reads the badge on the Filter button, 0 when there is no badge
func (f *Filter) ActiveCount() int {
	f.page.WaitForTimeout(1000)
	badge := f.page.Locator(`button:has(span:text-is("Filter"))`).
		Locator(`div:is([class*="bg-primary"], [class*="bg-[var(--primary)]"])`)
	if n, err := badge.Count(); err != nil || n == 0 {
		return 0
	}
	return badgeCount(textOf(badge.Locator("span").First()))
}

// badgeCount reads the leading digits of a badge like parseInt, "3+" is 3 and anything else is 0
func badgeCount(text string) int {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	num, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0
	}
	return num
}

// HasActive reports whether any filter is applied, per the Filter button badge
func (f *Filter) HasActive() bool {
	n := f.ActiveCount()
	log.Printf("[DEBUG] active filters: %d", n)
	return n > 0
}

// IsReset checks the filter group has no selection. When dialogOpen is false the dialog is opened
// for the check and closed afterwards.
func (f *Filter) IsReset(title string, dialogOpen bool) bool {
	if !dialogOpen {
		if !f.IsVisible() {
			if err := f.Open(""); err != nil {
				log.Printf("[WARN] can't open filter dialog, %v", err)
				return false
			}
		}
		defer func() { _ = f.Close() }()
	}
	f.page.WaitForTimeout(pauseLong)

	sec, err := firstPresent("filter section "+title,
		func() playwright.Locator {
			return f.page.Locator(`label:has-text(` + q(title) + `)`).Locator("..").First()
		},
		func() playwright.Locator {
			return f.page.Locator(`h3:has-text(` + q(title) + `)`).Locator("..").First()
		},
	)
	if err != nil {
		return false
	}
	present := func(sel string) bool {
		n, err := sec.Locator(sel).Count()
		return err == nil && n > 0
	}
	if present(`input[type="radio"]:checked`) || present(`button[role="radio"][aria-checked="true"]`) {
		return false
	}
	if present(`input[type="checkbox"]:checked`) || present(`button[role="checkbox"][data-state="checked"]`) {
		return false
	}
	const comboSel = `button[role="combobox"], [role="combobox"]`
	if present(comboSel) {
		return IsPlaceholderValue(textOf(sec.Locator(comboSel).First()))
	}
	return true
}

// IsPlaceholderValue tells whether a combobox text means "nothing selected"
func IsPlaceholderValue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.Contains(v, "Select")
}

// DropdownOptions lists options of a dropdown filter
func (f *Filter) DropdownOptions(label string) ([]string, error) {
	return f.dropdown.Options(label)
}
