package pages

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/ui"
)

const (
	routeCardSelector  = `[data-testid="routes-main-route-card"]`
	routeStatsSelector = `.text-sm.text-\[var\(--text-muted\)\]`
)

var (
	reHours     = regexp.MustCompile(`(\d+)hr\s+(\d+)m`)
	reCreatedBy = regexp.MustCompile(`Created by (.+)`)
)

// route sort options, their test ids and api params
var routeSorts = []struct {
	key    ui.RouteKey
	testID string
	param  string
}{
	{ui.RouteNewest, "", "-Id"},
	{ui.RouteOldest, "", "Id"},
	{ui.RouteShortest, "routes-main-sort-option-shortest", "distance"},
	{ui.RouteLongest, "routes-main-sort-option-longest", "-distance"},
	{ui.RouteMostStops, "routes-main-sort-option-most-stops", "-numberOfStops"},
	{ui.RouteFewestStops, "routes-main-sort-option-fewest-stops", "numberOfStops"},
}

// RouteSortParam returns the api sort param of a route sort option, "id" for unknown options
func RouteSortParam(key ui.RouteKey) string {
	for _, s := range routeSorts {
		if s.key == key {
			return s.param
		}
	}
	return "id"
}

// RouteData is the route form content with two points
type RouteData struct {
	Name          string
	StartLocation string
	EndLocation   string
	StartAddress  string
	EndAddress    string
}

// RouteFilter is what the routes filter dialog was set to
type RouteFilter struct {
	Stops     string // 2-5, 6-10, 10+
	Distance  string // <50 km, 50-200 km, 200+ km
	Duration  string // <1h, 1-4h, 4-8h, 8h+
	CreatedBy string
}

// Routes is the routes screen, a grid of route cards
type Routes struct {
	kit
}

// Add opens the add route form
func (r *Routes) Add() error {
	return r.clickText("button", "Add Route")
}

// FillForm fills name, both point names and picks their addresses from the suggestions
func (r *Routes) FillForm(d RouteData) error {
	if err := r.page.Locator(`input[name="routeName"]`).WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("route form: %w", err)
	}
	for _, f := range [][2]string{{"routeName", d.Name}, {"points.0.displayName", d.StartLocation}, {"points.1.displayName", d.EndLocation}} {
		if err := r.page.Locator(`input[name=` + strconv.Quote(f[0]) + `]`).Fill(f[1]); err != nil {
			return fmt.Errorf("fill %s: %w", f[0], err)
		}
	}
	if err := r.pickAddress(1, d.StartAddress); err != nil {
		return err
	}
	return r.pickAddress(2, d.EndAddress)
}

// pickAddress types the address of the n-th point and clicks the matching suggestion
func (r *Routes) pickAddress(n int, address string) error {
	if address == "" {
		return nil
	}
	point := r.page.Locator(`span:has-text("Point ` + strconv.Itoa(n) + `")`).First().Locator("..").Locator("..")
	if err := point.Locator(`input[placeholder="Enter address"]`).Fill(address); err != nil {
		return fmt.Errorf("point %d address: %w", n, err)
	}
	opt := r.page.Locator(`div[role="button"][aria-label*=` + strconv.Quote(address) + `]`).First()
	if err := opt.WaitFor(waitVisible(50 * time.Second)); err != nil {
		return fmt.Errorf("point %d suggestion %q: %w", n, address, err)
	}
	if err := opt.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("point %d suggestion: %w", n, err)
	}
	return opt.Click()
}

// Submit saves the route and returns to the list
func (r *Routes) Submit() error {
	save := r.page.Locator(`button:has-text("Save Route")`).Or(r.page.Locator(`button:has-text("Update Route")`)).First()
	if err := save.Click(); err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return r.clickText("button", "Back to Routes")
}

// IsListed checks the route card is shown and owned by the current user
func (r *Routes) IsListed(name string) bool {
	r.page.WaitForTimeout(2000)
	return visible(r.page.Locator(`h3:has-text(`+strconv.Quote(name)+`)`).First()) &&
		visible(r.page.Locator(`span:has-text("Created by Me")`).First())
}

// IsOwner checks the shown card is created by the current user
func (r *Routes) IsOwner() bool {
	return visible(r.page.Locator(`span:has-text("Created by Me")`).First())
}

// Edit finds the route and opens its form
func (r *Routes) Edit(name string) error {
	if err := r.Search(name); err != nil {
		return err
	}
	if err := r.click(`button[data-testid="routes-main-route-card-edit-icon"]`); err != nil {
		return err
	}
	return r.clickText("button", "Continue Editing")
}

// SaveEdit saves the edited route and returns to the list
func (r *Routes) SaveEdit() error {
	save := r.page.Locator(`button:has-text("Save Route")`).Or(r.page.Locator(`button:has-text("Save Changes")`)).First()
	if err := save.Click(); err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return r.click(`button[data-testid="routes-add-modal-success-back-to-routes"]`)
}

// View opens the details of the first card
func (r *Routes) View() error {
	return r.click(routeCardSelector + ` button[data-testid="routes-main-route-card-view-icon"]`)
}

// EditDisabled checks the edit button of the first card is disabled, routes of other users are read-only
func (r *Routes) EditDisabled() bool {
	return r.IsDisabled(routeCardSelector + ` button[data-testid="routes-main-route-card-edit-icon"]`)
}

// ArchiveDisabled checks the archive button of the first card is disabled
func (r *Routes) ArchiveDisabled() bool {
	return r.IsDisabled(routeCardSelector + ` button[data-testid="routes-main-route-card-archive-icon"]`)
}

// Archive archives the first shown route
func (r *Routes) Archive() error {
	if err := r.click(`button[data-testid="routes-main-route-card-archive-icon"]`); err != nil {
		return err
	}
	return r.clickText("button", "Archive Route")
}

// Unarchive restores the first shown archived route
func (r *Routes) Unarchive() error {
	if err := r.click(`button[data-testid="routes-main-route-card-unarchive-icon"]`); err != nil {
		return err
	}
	return r.clickText("button", "Unarchive Route")
}

// IsArchived switches to the Archived tab and looks for the route
func (r *Routes) IsArchived(name string) bool {
	if err := r.clickText("button", "Archived"); err != nil {
		return false
	}
	if err := r.Search(name); err != nil {
		return false
	}
	return visible(r.page.Locator(`h3:has-text(` + strconv.Quote(name) + `)`).First())
}

// VerifyDetails checks the details view shows the name, points and addresses
func (r *Routes) VerifyDetails(d RouteData) error {
	if err := r.page.Locator("p", playwright.PageLocatorOptions{HasText: "Route Details"}).First().
		WaitFor(waitVisible(5 * time.Second)); err != nil {
		return fmt.Errorf("route details: %w", err)
	}
	checks := [][2]string{{"h2", d.Name}, {"h4", d.StartLocation}, {"h4", d.EndLocation}, {"p", d.StartAddress}, {"p", d.EndAddress}}
	for _, c := range checks {
		loc := r.page.Locator(c[0] + `:has-text(` + strconv.Quote(c[1]) + `)`).First()
		txt, err := loc.TextContent()
		if err != nil {
			return fmt.Errorf("route details %s %q: %w", c[0], c[1], err)
		}
		if strings.TrimSpace(txt) != strings.TrimSpace(c[1]) {
			return fmt.Errorf("route details %s: %q, want %q: %w", c[0], strings.TrimSpace(txt), c[1], ui.ErrMismatch)
		}
	}
	return nil
}

// SetFilter selects every non-empty value of f in the open filter dialog
func (r *Routes) SetFilter(f RouteFilter) error {
	for _, rd := range [][2]string{{"No of Stops", f.Stops}, {"Total Distance", f.Distance}, {"Total Duration", f.Duration}} {
		if rd[1] == "" {
			continue
		}
		if err := r.Filter.SelectRadio(rd[0], rd[1]); err != nil {
			return err
		}
	}
	if f.CreatedBy != "" {
		return r.Filter.SelectDropdown("Created By", f.CreatedBy)
	}
	return nil
}

// ApplyFilters clicks Apply and returns routes of the refreshed list
func (r *Routes) ApplyFilters() ([]ui.Route, error) {
	return r.API.Routes(r.Filter.Apply)
}

// SortOptions opens the sort dropdown and reads its options
func (r *Routes) SortOptions() ([]string, error) {
	if err := r.click(`button[data-testid="routes-main-sort-dropdown"]`); err != nil {
		return nil, err
	}
	return r.Sort.Options()
}

// SortBy opens the sort dropdown, picks the option and returns routes of the refreshed list
func (r *Routes) SortBy(key ui.RouteKey) ([]ui.Route, error) {
	return r.API.Routes(func() error {
		if err := r.click(`button[data-testid="routes-main-sort-dropdown"]`); err != nil {
			return err
		}
		r.page.WaitForTimeout(500)
		for _, s := range routeSorts {
			if s.key != key {
				continue
			}
			if s.testID == "" {
				return r.clickText("span", string(key))
			}
			return r.click(`button[data-testid="` + s.testID + `"]`)
		}
		return fmt.Errorf("route sort %q: %w", key, ui.ErrNotFound)
	})
}

// Cards reads the route cards
func (r *Routes) Cards() ([]ui.RouteCard, error) {
	r.page.WaitForTimeout(1500)
	cards, err := r.page.Locator(routeCardSelector).All()
	if err != nil {
		return nil, fmt.Errorf("route cards: %w", err)
	}
	res := make([]ui.RouteCard, 0, len(cards))
	for _, c := range cards {
		card := ui.RouteCard{
			Name:   textOrEmpty(c.Locator("h3").First()),
			Points: textOrEmpty(c.Locator(`span:has-text("Points")`).First()),
			Stats:  textOrEmpty(c.Locator(routeStatsSelector).First()),
		}
		if m := reCreatedBy.FindStringSubmatch(textOrEmpty(c.Locator(`span:has-text("Created by")`).First())); m != nil {
			card.CreatedBy = strings.TrimSpace(m[1])
		}
		res = append(res, card)
	}
	return res, nil
}

// VerifyFiltered checks every card satisfies the filter, no cards is fine when the api returned none
func (r *Routes) VerifyFiltered(f RouteFilter, api []ui.Route) (bool, error) {
	cards, err := r.Cards()
	if err != nil {
		return false, err
	}
	if len(cards) == 0 {
		return len(api) == 0, nil
	}
	for i, c := range cards {
		if !f.Matches(c) {
			log.Printf("[WARN] route card %d %+v doesn't match %+v", i, c, f)
			return false, nil
		}
	}
	return true, nil
}

// Matches checks a card against the filter buckets
func (f RouteFilter) Matches(c ui.RouteCard) bool {
	if f.Stops != "" && !StopsInBucket(f.Stops, ui.ParsePoints(c.Points)) {
		return false
	}
	if f.Distance != "" && !DistanceInBucket(f.Distance, ui.ParseDistanceKm(c.Stats)) {
		return false
	}
	if f.Duration != "" && !DurationInBucket(f.Duration, ParseHours(c.Stats)) {
		return false
	}
	if f.CreatedBy != "" && c.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}

// StopsInBucket checks a points count against the "No of Stops" options
func StopsInBucket(bucket string, points int) bool {
	switch bucket {
	case "2-5":
		return points >= 2 && points <= 5
	case "6-10":
		return points >= 6 && points <= 10
	case "10+":
		return points > 10
	default:
		return false
	}
}

// DistanceInBucket checks km against the "Total Distance" options
func DistanceInBucket(bucket string, km float64) bool {
	switch bucket {
	case "<50 km":
		return km < 50
	case "50-200 km":
		return km >= 50 && km <= 200
	case "200+ km":
		return km > 200
	default:
		return false
	}
}

// DurationInBucket checks whole hours against the "Total Duration" options
func DurationInBucket(bucket string, hours int) bool {
	switch bucket {
	case "<1h":
		return hours < 1
	case "1-4h":
		return hours >= 1 && hours <= 4
	case "4-8h":
		return hours >= 4 && hours <= 8
	case "8h+":
		return hours > 8
	default:
		return false
	}
}

// ParseHours extracts whole hours from "12hr 5m (est)", 0 if absent
func ParseHours(stats string) int {
	m := reHours.FindStringSubmatch(stats)
	if m == nil {
		return 0
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return h
}

func textOrEmpty(loc playwright.Locator) string {
	n, err := loc.Count()
	if err != nil || n == 0 {
		return ""
	}
	s, err := loc.TextContent()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
