// Package pages has page objects of the fleet application screens. Each page composes the ui
// utilities and exposes actions and reads in the screen vocabulary, scenario tests never touch
// selectors directly.
package pages

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/ui"
)

// ErrMissingErrors returned when some of the expected field errors are not shown
var ErrMissingErrors = errors.New("expected field errors not shown")

var (
	reNotification = regexp.MustCompile(`(?i)successfully|updated|deleted|created|added`)
	reNoRow        = regexp.MustCompile(`^\s*No \w+ found`)
)

const (
	titleSelector  = "h1, .page-title"
	searchSelector = `input[placeholder="Search"]`
	rowSelector    = "tbody tr"
)

// kit bundles the ui utilities a screen works with
type kit struct {
	page     playwright.Page
	dropdown *ui.Dropdown
	dates    *ui.DatePicker
	files    *ui.Uploader
	Filter   *ui.Filter
	Sort     *ui.Sort
	API      *ui.APIAssert
}

func newKit(page playwright.Page, apiTimeout time.Duration) kit {
	return kit{
		page:     page,
		dropdown: ui.NewDropdown(page),
		dates:    ui.NewDatePicker(page),
		files:    ui.NewUploader(page),
		Filter:   ui.NewFilter(page),
		Sort:     ui.NewSort(page),
		API:      ui.NewAPIAssert(page, apiTimeout),
	}
}

// Title returns the heading of the screen
func (k kit) Title() (string, error) {
	loc := k.page.Locator(titleSelector).First()
	if err := loc.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return "", fmt.Errorf("page title: %w", err)
	}
	s, err := loc.TextContent()
	if err != nil {
		return "", fmt.Errorf("page title: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// Search types into the list search box and lets the list refresh
func (k kit) Search(text string) error {
	if err := k.page.Locator(searchSelector).First().Fill(text); err != nil {
		return fmt.Errorf("search %q: %w", text, err)
	}
	k.page.WaitForTimeout(1500)
	return nil
}

// IsListed checks a visible table row contains the text
func (k kit) IsListed(text string) bool {
	k.page.WaitForTimeout(1500)
	rows := k.page.Locator("tr:has-text(" + strconv.Quote(text) + ")")
	n, err := rows.Count()
	if err != nil {
		return false
	}
	for i := 0; i < n; i++ {
		if visible(rows.Nth(i)) {
			return true
		}
	}
	return false
}

// Notification waits for a success toast and returns its text
func (k kit) Notification() (string, error) {
	loc := k.page.Locator("text=/successfully|updated|deleted|created|added/i").First()
	if err := loc.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return "", fmt.Errorf("notification: %w", err)
	}
	s, err := loc.TextContent()
	if err != nil {
		return "", fmt.Errorf("notification text: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// Toast checks a toast list item with the message is shown
func (k kit) Toast(message string) error {
	loc := k.page.Locator("li:has-text(" + strconv.Quote(message) + ")").First()
	if err := loc.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("toast %q: %w", message, err)
	}
	return nil
}

// ExpectErrors checks every message is visible, the error lists the missing ones
func (k kit) ExpectErrors(messages ...string) error {
	var missing []string
	for _, msg := range messages {
		if !visible(k.page.Locator("text=" + msg).First()) {
			missing = append(missing, msg)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(missing, "; "), ErrMissingErrors)
	}
	return nil
}

// IsDisabled checks the button matched by the selector is disabled
func (k kit) IsDisabled(selector string) bool {
	disabled, err := k.page.Locator(selector).First().IsDisabled()
	return err == nil && disabled
}

func (k kit) click(selector string) error {
	if err := k.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (k kit) clickText(tag, text string) error {
	return k.click(tag + ":has-text(" + strconv.Quote(text) + ")")
}

// fill sets inputs by selector, empty values are skipped
func (k kit) fill(fields ...[2]string) error {
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := k.page.Locator(f[0]).First().Fill(f[1]); err != nil {
			return fmt.Errorf("fill %s: %w", f[0], err)
		}
	}
	return nil
}

// rowButton searches the list and clicks the idx-th button of the first visible row with the text
func (k kit) rowButton(text string, idx int) error {
	if err := k.Search(text); err != nil {
		return err
	}
	row := k.page.Locator("tr:has-text(" + strconv.Quote(text) + "):visible").First()
	if err := row.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("row %q: %w", text, ui.ErrNotFound)
	}
	if err := row.Locator("button").Nth(idx).Click(); err != nil {
		return fmt.Errorf("row %q button %d: %w", text, idx, err)
	}
	k.page.WaitForTimeout(500)
	return nil
}

// confirmDelete fills the DELETE confirmation if the dialog asks for it and clicks the button
func (k kit) confirmDelete(input, button string) error {
	if input != "" {
		if err := k.page.Locator(input).First().Fill("DELETE"); err != nil {
			return fmt.Errorf("delete confirmation: %w", err)
		}
	}
	if err := k.clickText("button", button); err != nil {
		return err
	}
	k.page.WaitForTimeout(1500)
	return nil
}

// cellTexts reads trimmed rendered cell texts of every table row skipping "No ..." placeholder rows
func (k kit) cellTexts() ([][]string, error) {
	k.page.WaitForTimeout(1500)
	rows := k.page.Locator(rowSelector).Filter(playwright.LocatorFilterOptions{HasNotText: reNoRow})
	n, err := rows.Count()
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	res := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		cells, err := rows.Nth(i).Locator("td").AllInnerTexts()
		if err != nil {
			return nil, fmt.Errorf("row %d cells: %w", i, err)
		}
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
		}
		res = append(res, cells)
	}
	log.Printf("[DEBUG] read %d rows", len(res))
	return res, nil
}

// rowsMatch checks up to limit rows contain all criteria, case-insensitive. An empty list is
// accepted only when the empty state pattern is shown.
func (k kit) rowsMatch(emptyPattern string, limit int, criteria ...string) (bool, error) {
	k.page.WaitForTimeout(1500)
	texts, err := k.page.Locator(rowSelector).AllTextContents()
	if err != nil {
		return false, fmt.Errorf("read rows: %w", err)
	}
	texts = dropPlaceholders(texts)
	if len(texts) == 0 {
		return visible(k.page.Locator("text=/" + emptyPattern + "/i").First()), nil
	}
	if limit > 0 && len(texts) > limit {
		texts = texts[:limit]
	}
	for i, txt := range texts {
		if !containsAll(txt, criteria...) {
			log.Printf("[WARN] row %d %q doesn't match %v", i, txt, criteria)
			return false, nil
		}
	}
	return true, nil
}

// containsAll checks text has every non-empty criterion, case-insensitive
func containsAll(text string, criteria ...string) bool {
	text = strings.ToLower(text)
	for _, c := range criteria {
		if c == "" {
			continue
		}
		if !strings.Contains(text, strings.ToLower(c)) {
			return false
		}
	}
	return true
}

// dropPlaceholders removes "No ... found" rows tables render when empty
func dropPlaceholders(rows []string) []string {
	res := make([]string, 0, len(rows))
	for _, r := range rows {
		if strings.HasPrefix(strings.TrimSpace(r), "No ") {
			continue
		}
		res = append(res, r)
	}
	return res
}

// cell returns the i-th value or empty string
func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// IsNotification checks a text looks like a success toast
func IsNotification(s string) bool {
	return reNotification.MatchString(s)
}

func visible(loc playwright.Locator) bool {
	ok, err := loc.IsVisible()
	return err == nil && ok
}

func waitVisible(d time.Duration) playwright.LocatorWaitForOptions {
	return playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(float64(d.Milliseconds()))}
}

// sortOption ties a sort menu option to the compared key and the api sort param
type sortOption[K ~string] struct {
	option string
	key    K
	param  string
}

// lookupSort finds the option, unknown options sort by id
func lookupSort[K ~string](opts []sortOption[K], option string) (key K, param string) {
	for _, o := range opts {
		if strings.Contains(option, o.option) {
			return o.key, o.param
		}
	}
	return key, "id"
}
