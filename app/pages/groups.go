package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/ui"
)

var groupSorts = []sortOption[ui.GroupKey]{
	{"Group Name (A-Z)", ui.GroupByName, "groupName"},
	{"Group Name (Z-A)", ui.GroupByName, "-groupName"},
	{"No. of Vehicles (Low-High)", ui.GroupByCount, "vehicleCount"},
	{"No. of Vehicles (High-Low)", ui.GroupByCount, "-vehicleCount"},
}

// GroupSortColumn is the table column group name sorts order
const GroupSortColumn = 1

// GroupData is the fleet group form content
type GroupData struct {
	Name    string
	Manager string
	Vehicle string // plate searched and checked in the vehicles table of the form
}

// GroupFilter is what the groups filter dialog was set to. Vehicles is a count range like "1-10".
type GroupFilter struct {
	Manager   string
	CreatedBy string
	Vehicles  string
}

// FleetGroups is the fleet groups screen
type FleetGroups struct {
	kit
}

// Add opens the create group form
func (g *FleetGroups) Add() error {
	return g.clickText("button", "Create Group")
}

// FillForm fills the group form, empty fields are left untouched
func (g *FleetGroups) FillForm(d GroupData) error {
	if err := g.fill([2]string{`input[name="groupName"]`, d.Name}); err != nil {
		return err
	}
	if d.Manager != "" {
		if err := g.pickManager(d.Manager); err != nil {
			return err
		}
	}
	if d.Vehicle == "" {
		return nil
	}
	if err := g.page.Locator(`input[placeholder="Search vehicle"]`).Fill(d.Vehicle); err != nil {
		return fmt.Errorf("search vehicle: %w", err)
	}
	g.page.WaitForTimeout(500)
	if err := g.page.Locator(`tbody[data-slot="table-body"] input[type="checkbox"]`).First().Click(); err != nil {
		return fmt.Errorf("check vehicle %q: %w", d.Vehicle, err)
	}
	return nil
}

// pickManager opens the manager popover, types the name and clicks the matching entry
func (g *FleetGroups) pickManager(name string) error {
	trigger := g.page.Locator(`label[for="userIds"]`).Locator("..").Locator(`button[aria-haspopup="dialog"]`).First()
	if err := trigger.Click(); err != nil {
		return fmt.Errorf("manager popover: %w", err)
	}
	g.page.WaitForTimeout(500)
	if err := g.page.Keyboard().Type(name); err != nil {
		return fmt.Errorf("type manager: %w", err)
	}
	g.page.WaitForTimeout(500)
	if err := g.page.Locator(`[role="dialog"] >> text=` + strconv.Quote(name)).First().Click(); err != nil {
		return fmt.Errorf("manager %q: %w", name, ui.ErrNotFound)
	}
	return g.page.Keyboard().Press("Escape")
}

// Submit saves a new group
func (g *FleetGroups) Submit() error {
	return g.clickText("button", "Save Group")
}

// SaveDisabled checks the form submit button is disabled
func (g *FleetGroups) SaveDisabled() bool {
	return g.IsDisabled(`button[form="group-form"]`)
}

// View opens the details modal of the group
func (g *FleetGroups) View(name string) error {
	return g.rowButton(name, 0)
}

// VerifyDetails checks the details modal shows the group name and manager
func (g *FleetGroups) VerifyDetails(name, manager string) error {
	if err := g.page.Locator("p", playwright.PageLocatorOptions{HasText: "Fleet Group Details"}).First().
		WaitFor(waitVisible(5 * time.Second)); err != nil {
		return fmt.Errorf("group details modal: %w", err)
	}
	txt, err := g.page.Locator(`div:has(span:text("Group Details"))`).Last().TextContent()
	if err != nil {
		return fmt.Errorf("group details: %w", err)
	}
	if !containsAll(txt, name, manager) {
		return fmt.Errorf("group details %q without %q or %q: %w", txt, name, manager, ui.ErrMismatch)
	}
	return nil
}

// Edit opens the edit form of the group
func (g *FleetGroups) Edit(name string) error {
	if err := g.rowButton(name, 1); err != nil {
		return err
	}
	return g.page.Locator(`input[name="groupName"]`).WaitFor(waitVisible(10 * time.Second))
}

// Rename changes the group name of the open form
func (g *FleetGroups) Rename(name string) error {
	return g.page.Locator(`input[name="groupName"]`).Fill(name)
}

// SaveEdit submits the edit form
func (g *FleetGroups) SaveEdit() error {
	return g.clickText("button", "Save Changes")
}

// Delete removes the group, the dialog asks to type DELETE
func (g *FleetGroups) Delete(name string) error {
	if err := g.rowButton(name, 2); err != nil {
		return err
	}
	return g.confirmDelete(`input[name="confirmationText"]`, "Delete Group")
}

// HasManager checks the group row shows the manager
func (g *FleetGroups) HasManager(name, manager string) bool {
	g.page.WaitForTimeout(1500)
	return visible(g.page.Locator(`tr:has-text(` + strconv.Quote(name) + `) >> td:has-text(` + strconv.Quote(manager) + `)`).First())
}

// NoResults returns the empty search message
func (g *FleetGroups) NoResults() (string, error) {
	loc := g.page.Locator("text=No results found").First()
	if err := loc.WaitFor(waitVisible(5 * time.Second)); err != nil {
		return "", fmt.Errorf("no results message: %w", err)
	}
	return loc.TextContent()
}

// SetFilter selects every non-empty value of f in the open filter dialog
func (g *FleetGroups) SetFilter(f GroupFilter) error {
	if f.Manager != "" {
		if err := g.Filter.SelectRadixOption("Fleet Manager", f.Manager); err != nil {
			return err
		}
	}
	if f.CreatedBy != "" {
		if err := g.Filter.SelectRadixSingle("Created By", f.CreatedBy); err != nil {
			return err
		}
	}
	if f.Vehicles != "" {
		return g.Filter.SelectCheckbox("No. of Vehicles", f.Vehicles)
	}
	return nil
}

// ApplyFilters clicks Apply and returns groups of the filtered request
func (g *FleetGroups) ApplyFilters() ([]ui.Group, error) {
	return g.API.Groups("filters=", g.Filter.Apply)
}

// SortBy picks the sort option and returns groups of the sorted request with the compared key
func (g *FleetGroups) SortBy(option string) ([]ui.Group, ui.GroupKey, error) {
	key, param := lookupSort(groupSorts, option)
	if key == "" {
		key = ui.GroupByName
	}
	recs, err := g.API.Groups("sorts="+param, func() error { return g.Sort.Select(option) })
	return recs, key, err
}

// Rows reads the groups table
func (g *FleetGroups) Rows() ([]ui.GroupRow, error) {
	cells, err := g.cellTexts()
	if err != nil {
		return nil, err
	}
	res := make([]ui.GroupRow, 0, len(cells))
	for _, c := range cells {
		res = append(res, parseGroupRow(c))
	}
	return res, nil
}

// VerifyFiltered checks every row satisfies the filter, an empty table needs the empty state
func (g *FleetGroups) VerifyFiltered(f GroupFilter) (bool, error) {
	rows, err := g.Rows()
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return visible(g.page.Locator("text=/No groups found/i").First()), nil
	}
	for _, r := range rows {
		if !f.Matches(r) {
			return false, nil
		}
	}
	return true, nil
}

// Matches checks a rendered group row against the filter
func (f GroupFilter) Matches(r ui.GroupRow) bool {
	if f.Manager != "" && !containsAll(r.Manager, f.Manager) {
		return false
	}
	if f.CreatedBy != "" && !containsAll(r.CreatedBy, f.CreatedBy) {
		return false
	}
	if f.Vehicles != "" {
		n, err := strconv.ParseFloat(strings.TrimSpace(r.Vehicles), 64)
		if err != nil || !ScoreInRange(f.Vehicles, n) {
			return false
		}
	}
	return true
}

// parseGroupRow maps table cells: #, group name, manager, created by, vehicles
func parseGroupRow(cells []string) ui.GroupRow {
	return ui.GroupRow{
		GroupName: cell(cells, 1),
		Manager:   cell(cells, 2),
		CreatedBy: cell(cells, 3),
		Vehicles:  cell(cells, 4),
	}
}
