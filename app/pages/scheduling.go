package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/ui"
)

// TripRequiredErrors are shown when the trip form is saved empty
var TripRequiredErrors = []string{
	"Fleet Group is required",
	"Vehicle is required",
	"Route is required",
	"Main Driver is required",
	"End Date must be after Start Date",
}

// TripData is the trip form content. Dates are YYYY-MM-DD, times HH:MM.
type TripData struct {
	FleetGroup       string
	Vehicle          string
	UsePrimaryDriver bool // keep the vehicle's primary driver, skip driver dropdowns
	PrimaryDriver    string
	SecondaryDriver  string
	Route            string
	StartDate        string
	StartTime        string
	EndDate          string
	EndTime          string
	Recurrence       string
	Custom           *CustomRecurrence
}

// CustomRecurrence is the custom repeat block of the trip form
type CustomRecurrence struct {
	RepeatEvery int
	RepeatType  string // Days, Weeks, Months or Years
	RepeatOn    []time.Weekday
	Ends        string // Never, After or On
}

// TripFilter is the set of calendar filters, empty fields are not applied
type TripFilter struct {
	FleetGroup string
	Vehicle    string
	Driver     string
	Route      string
}

// Scheduling is the trips calendar
type Scheduling struct {
	kit
}

// NewTrip opens the new trip form
func (s *Scheduling) NewTrip() error {
	return s.clickText("button", "New Trip")
}

// FillTrip fills the trip form and submits it
func (s *Scheduling) FillTrip(t TripData) error {
	if err := s.page.Locator(`h2:has-text("Schedule New Trip"), h2:has-text("Edit Trip")`).First().
		WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("trip form: %w", err)
	}
	selects := [][3]string{{"Fleet Group", "fleetGroupId", t.FleetGroup}, {"Vehicle", "vehicleId", t.Vehicle}}
	if !t.UsePrimaryDriver {
		selects = append(selects, [3]string{"Primary Driver", "mainDriverId", t.PrimaryDriver},
			[3]string{"Secondary Driver", "secondaryDriverId", t.SecondaryDriver})
	}
	selects = append(selects, [3]string{"Route Name", "routeId", t.Route})
	for _, sel := range selects {
		if sel[2] == "" {
			continue
		}
		if err := s.Filter.SelectDropdownByID(sel[0], sel[1], sel[2]); err != nil {
			return err
		}
	}

	// end date first, the start date picker limits days after the end
	if t.EndDate != "" {
		if err := s.dates.SetScheduleDate("End Date", t.EndDate, t.EndTime); err != nil {
			return err
		}
	}
	if t.StartDate != "" {
		if err := s.dates.SetScheduleDate("Start Date", t.StartDate, t.StartTime); err != nil {
			return err
		}
	}

	if t.Recurrence != "" {
		// the app labels it "Recurrance"
		if err := s.dropdown.SelectByKeyboard("Recurr", t.Recurrence); err != nil {
			return err
		}
	}
	if t.Custom != nil {
		if err := s.setCustomRecurrence(*t.Custom); err != nil {
			return err
		}
	}
	return s.Submit()
}

func (s *Scheduling) setCustomRecurrence(c CustomRecurrence) error {
	if err := s.page.Locator(`input[type="number"]`).First().Fill(strconv.Itoa(c.RepeatEvery)); err != nil {
		return fmt.Errorf("repeat every: %w", err)
	}
	if err := s.dropdown.SelectByKeyboard("Repeat Type", c.RepeatType); err != nil {
		return err
	}
	days := s.page.Locator(`label:has-text("Repeat On")`).First().Locator("..")
	for _, wd := range c.RepeatOn {
		letter, nth := DayButton(wd)
		if err := days.Locator(`button:has-text(` + strconv.Quote(letter) + `)`).Nth(nth).Click(); err != nil {
			return fmt.Errorf("repeat on %s: %w", wd, err)
		}
	}
	if c.Ends != "" {
		return s.Filter.SelectRadio("Ends", c.Ends)
	}
	return nil
}

// DayButton maps a weekday to its "Repeat On" button: the letter and which of the same letters it is
func DayButton(wd time.Weekday) (letter string, nth int) {
	switch wd {
	case time.Monday:
		return "M", 0
	case time.Tuesday:
		return "T", 0
	case time.Wednesday:
		return "W", 0
	case time.Thursday:
		return "T", 1
	case time.Friday:
		return "F", 0
	case time.Saturday:
		return "S", 0
	default:
		return "S", 1
	}
}

// Submit saves the trip form
func (s *Scheduling) Submit() error {
	return s.click(`button[type="submit"]:has-text("Save")`)
}

// RequiredErrors checks the validation errors of an empty trip form
func (s *Scheduling) RequiredErrors() error {
	return s.ExpectErrors(TripRequiredErrors...)
}

// DayView switches the calendar to the day view
func (s *Scheduling) DayView() error {
	return s.switchView("Day")
}

// switchView picks Day, Week or Month in the calendar view selector
func (s *Scheduling) switchView(view string) error {
	if err := s.click(`button[role="combobox"]`); err != nil {
		return err
	}
	if err := s.page.GetByRole(*playwright.AriaRoleOption, playwright.PageGetByRoleOptions{Name: view, Exact: playwright.Bool(true)}).Click(); err != nil {
		return fmt.Errorf("calendar view %s: %w", view, err)
	}
	s.page.WaitForTimeout(1000)
	return nil
}

// SwitchView changes the calendar view and returns the trips the calendar requested for it
func (s *Scheduling) SwitchView(view string) ([]ui.Schedule, error) {
	return s.API.Schedules("", func() error { return s.switchView(view) })
}

// HasTrip checks the day view shows a trip card with the vehicle and the driver
func (s *Scheduling) HasTrip(t TripData) bool {
	if err := s.DayView(); err != nil {
		log.Printf("[WARN] can't switch to day view, %v", err)
		return false
	}
	s.page.WaitForTimeout(2000)
	card := s.tripCard(t.Vehicle)
	if !visible(card) {
		return false
	}
	if t.PrimaryDriver == "" {
		return true
	}
	return containsAll(textOrEmpty(card), t.PrimaryDriver)
}

// OpenTrip opens the details of the trip in the day view
func (s *Scheduling) OpenTrip(t TripData) error {
	if err := s.DayView(); err != nil {
		return err
	}
	if err := s.tripCard(t.Vehicle).Click(); err != nil {
		return fmt.Errorf("trip card %q: %w", t.Vehicle, err)
	}
	return nil
}

func (s *Scheduling) tripCard(vehicle string) playwright.Locator {
	return s.page.Locator(`div[type="button"]:has-text(` + strconv.Quote(vehicle) + `)`).First()
}

// VerifyTripDetails checks the details view shows vehicle, driver and route
func (s *Scheduling) VerifyTripDetails(t TripData) error {
	checks := [][2]string{{"h3", t.Vehicle}, {"p", t.PrimaryDriver}, {"p", t.Route}}
	for _, c := range checks {
		if c[1] == "" {
			continue
		}
		if err := s.page.Locator(c[0] + `:has-text(` + strconv.Quote(c[1]) + `)`).First().WaitFor(waitVisible(5 * time.Second)); err != nil {
			return fmt.Errorf("trip details %s %q: %w", c[0], c[1], ui.ErrNotFound)
		}
	}
	return nil
}

// EditTrip clicks Edit in the open trip details
func (s *Scheduling) EditTrip() error {
	return s.clickText("button", "Edit")
}

// DeleteTrip deletes the trip of the open details and confirms
func (s *Scheduling) DeleteTrip() error {
	if err := s.clickText("button", "Delete"); err != nil {
		return err
	}
	return s.confirmDelete("", "Delete Trip")
}

// ApplyFilter picks value in the calendar filter popover and returns trips of the refreshed calendar
func (s *Scheduling) ApplyFilter(label, value string) ([]ui.Schedule, error) {
	return s.API.Schedules("", func() error { return s.selectFilter(label, value) })
}

// selectFilter opens the popover of the filter and checks the value, searchable lists and plain
// listboxes are both handled
func (s *Scheduling) selectFilter(label, value string) error {
	trigger := s.page.Locator(`button[data-slot="popover-trigger"]:has-text(` + strconv.Quote(label) + `)`).First()
	if err := trigger.Click(); err != nil {
		return fmt.Errorf("filter %q: %w", label, err)
	}
	search := s.page.Locator(".searchbar-container").First()
	if search.WaitFor(waitVisible(time.Second)) == nil {
		input := search.Locator(`input[placeholder=` + strconv.Quote("Search "+label) + `]`).First()
		if err := input.Fill(value); err != nil {
			return fmt.Errorf("search %q in %q: %w", value, label, err)
		}
		s.page.WaitForTimeout(300)
		opt := s.page.Locator(`.option-label:text-is(` + strconv.Quote(value) + `)`).First()
		if err := opt.WaitFor(waitVisible(5 * time.Second)); err != nil {
			return fmt.Errorf("option %q in %q: %w", value, label, ui.ErrNotFound)
		}
		box := opt.Locator(`xpath=ancestor::div[contains(@class, "list-option")]`).First().
			Locator(`button[role="checkbox"], p:has-text(` + strconv.Quote(value) + `)`).First()
		if err := box.Click(); err != nil {
			return fmt.Errorf("check %q in %q: %w", value, label, err)
		}
	} else {
		opt := s.page.Locator(`[role="listbox"], [role="menu"]`).First().
			Locator(`[role="option"]:has-text(` + strconv.Quote(value) + `), [role="menuitem"]:has-text(` + strconv.Quote(value) + `)`).First()
		if err := opt.WaitFor(waitVisible(5 * time.Second)); err != nil {
			return fmt.Errorf("option %q in %q: %w", value, label, ui.ErrNotFound)
		}
		if err := opt.Click(); err != nil {
			return fmt.Errorf("click %q in %q: %w", value, label, err)
		}
	}
	s.page.WaitForTimeout(300)
	return nil
}

// RemoveDriverFilter clicks the x of the driver chip and returns trips of the refreshed calendar
func (s *Scheduling) RemoveDriverFilter(name string) ([]ui.Schedule, error) {
	return s.API.Schedules("", func() error {
		return s.click(`span:has-text(` + strconv.Quote(name) + `) + svg`)
	})
}

// Matches checks a trip of the schedules api against the filter
func (f TripFilter) Matches(t ui.Schedule) bool {
	if f.FleetGroup != "" && (t.Vehicle == nil || t.Vehicle.Group == nil || t.Vehicle.Group.GroupName != f.FleetGroup) {
		return false
	}
	if f.Vehicle != "" && (t.Vehicle == nil || t.Vehicle.PlateNo != f.Vehicle) {
		return false
	}
	if f.Driver != "" && (t.PrimaryDriver == nil || t.PrimaryDriver.Name != f.Driver) {
		return false
	}
	if f.Route != "" && (t.Route == nil || !strings.Contains(t.Route.Name, f.Route)) {
		return false
	}
	return true
}

// VerifyTrips checks every trip matches the filter
func (f TripFilter) VerifyTrips(trips []ui.Schedule) error {
	for i, t := range trips {
		if !f.Matches(t) {
			return fmt.Errorf("trip %d (%d %q) doesn't match %+v: %w", i, t.ID, t.Title, f, ui.ErrMismatch)
		}
	}
	return nil
}
