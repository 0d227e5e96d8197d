package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/ui"
)

// DriverRequiredErrors are the messages shown when the driver form is saved empty
var DriverRequiredErrors = []string{
	"Document number is required",
	"Driver name is required",
	"Document type is required",
	"License number is required",
	"License class is required",
	"Expiry date must be after issue date",
	"At least one ID document file is required",
}

// DriverData is the driver form content, dates are YYYY-MM-DD
type DriverData struct {
	Name           string
	Phone          string
	Email          string
	Nationality    string
	DocumentType   string
	DocumentNumber string
	LicenseClass   string
	LicenseNumber  string
	LicenseIssue   string
	LicenseExpiry  string
	ProfileImage   string
	IDDocument     string
	AdditionalDocs []string
}

// NewDriverData makes a unique driver for a test run
func NewDriverData(now time.Time) DriverData {
	id := uniqueID("", now)
	return DriverData{
		Name:           "Auto Driver " + id,
		Phone:          "5" + id[:min(9, len(id))],
		Email:          "driver" + strings.ToLower(id) + "@example.com",
		Nationality:    "Pakistan",
		DocumentType:   "Iqama",
		DocumentNumber: uniqueID("DOC", now),
		LicenseClass:   "Class 2 - Private Vehicles",
		LicenseNumber:  uniqueID("LIC", now),
		LicenseIssue:   now.AddDate(-1, 0, 0).Format("2006-01-02"),
		LicenseExpiry:  now.AddDate(2, 0, 0).Format("2006-01-02"),
	}
}

// DriverFilter is what the driver filter dialog was set to, empty fields are not checked
type DriverFilter struct {
	VehicleAssigned string // Yes or No
	PrimaryDriver   string // Yes or No
	BehaviourScore  string // range like 80-100
}

// Drivers is the drivers list screen with its form
type Drivers struct {
	kit
}

// Add opens the add driver form
func (d *Drivers) Add() error {
	return d.clickText("button", "Add Driver")
}

// FillForm fills the driver form, nationality is a searchable dropdown shared with filters
func (d *Drivers) FillForm(data DriverData) error {
	if err := d.page.Locator("#driverName").Fill(data.Name); err != nil {
		return fmt.Errorf("driver name: %w", err)
	}
	if err := d.page.Locator("#mobileNumber").Fill(data.Phone); err != nil {
		return fmt.Errorf("mobile number: %w", err)
	}
	if err := d.page.Locator("#email").Fill(data.Email); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if data.Nationality != "" {
		if err := d.Filter.SelectDropdown("Nationality", data.Nationality); err != nil {
			return err
		}
	}
	if data.DocumentType != "" {
		if err := d.dropdown.SelectByKeyboard("Document Type", data.DocumentType); err != nil {
			return err
		}
	}
	if data.LicenseClass != "" {
		if err := d.dropdown.SelectByKeyboard("License Class", data.LicenseClass); err != nil {
			return err
		}
	}
	if err := d.fill(
		[2]string{`input[name="documentNumber"]`, data.DocumentNumber},
		[2]string{`input[name="licenseNumber"]`, data.LicenseNumber},
	); err != nil {
		return err
	}
	if data.LicenseIssue != "" {
		if err := d.dates.SetByTyping("License Issue Date", data.LicenseIssue); err != nil {
			return err
		}
	}
	if data.LicenseExpiry != "" {
		if err := d.dates.SetByTyping("License Expiry Date", data.LicenseExpiry); err != nil {
			return err
		}
	}
	if data.ProfileImage != "" {
		if err := d.files.Upload("Upload Image", data.ProfileImage); err != nil {
			return err
		}
	}
	if data.IDDocument != "" {
		if err := d.files.Upload("ID Document Copy", data.IDDocument); err != nil {
			return err
		}
	}
	if len(data.AdditionalDocs) > 0 {
		return d.files.UploadMany(data.AdditionalDocs)
	}
	return nil
}

// Submit saves a new driver
func (d *Drivers) Submit() error {
	if err := d.click(`button[type="submit"]:has-text("Save")`); err != nil {
		return err
	}
	d.page.WaitForTimeout(2000)
	return nil
}

// View opens the driver details modal
func (d *Drivers) View(name string) error {
	return d.rowButton(name, 0)
}

// VerifyDetails checks the details modal shows the name and email
func (d *Drivers) VerifyDetails(name, email string) error {
	if err := d.page.Locator("p", playwright.PageLocatorOptions{HasText: "Driver Details"}).First().
		WaitFor(waitVisible(5 * time.Second)); err != nil {
		return fmt.Errorf("driver details modal: %w", err)
	}
	txt, err := d.page.Locator(`h3:has-text("Driver Details")`).First().
		Locator(`xpath=ancestor::div[contains(@class,"bg-card")]`).First().TextContent()
	if err != nil {
		return fmt.Errorf("driver details: %w", err)
	}
	if !containsAll(txt, name, email) {
		return fmt.Errorf("driver details %q without %q or %q: %w", txt, name, email, ui.ErrMismatch)
	}
	return nil
}

// Edit opens the edit form of the driver
func (d *Drivers) Edit(name string) error {
	return d.rowButton(name, 1)
}

// UpdateEmail changes the email of the open form
func (d *Drivers) UpdateEmail(email string) error {
	return d.page.Locator(`input[name="email"]`).Fill(email)
}

// SaveEdit submits the edit form
func (d *Drivers) SaveEdit() error {
	return d.clickText("button", "Save Changes")
}

// Delete removes the driver
func (d *Drivers) Delete(name string) error {
	if err := d.rowButton(name, 2); err != nil {
		return err
	}
	return d.confirmDelete("", "Delete")
}

// RequiredErrors checks all required field errors are shown
func (d *Drivers) RequiredErrors() error {
	return d.ExpectErrors(DriverRequiredErrors...)
}

// SetFilter selects every non-empty value of f in the open filter dialog
func (d *Drivers) SetFilter(f DriverFilter) error {
	for _, r := range [][2]string{{"Vehicle Assigned", f.VehicleAssigned}, {"Primary Driver", f.PrimaryDriver},
		{"Behaviour Score", f.BehaviourScore}} {
		if r[1] == "" {
			continue
		}
		if err := d.Filter.SelectRadio(r[0], r[1]); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFilters clicks Apply and returns drivers of the filtered request
func (d *Drivers) ApplyFilters() ([]ui.Driver, error) {
	return d.API.Drivers("filters=", d.Filter.Apply)
}

// SortBy picks the sort option and returns drivers of the sorted request
func (d *Drivers) SortBy(option string) ([]ui.Driver, error) {
	return d.API.Drivers("sorts=", func() error { return d.Sort.Select(option) })
}

// Rows reads the drivers table
func (d *Drivers) Rows() ([]ui.DriverRow, error) {
	cells, err := d.cellTexts()
	if err != nil {
		return nil, err
	}
	res := make([]ui.DriverRow, 0, len(cells))
	for _, c := range cells {
		res = append(res, parseDriverRow(c))
	}
	return res, nil
}

// VerifyFiltered checks up to 10 rows satisfy the filter, an empty table needs the empty state
func (d *Drivers) VerifyFiltered(f DriverFilter) (bool, error) {
	rows, err := d.Rows()
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return visible(d.page.Locator("text=No drivers found").First()), nil
	}
	for _, r := range rows[:min(len(rows), 10)] {
		if !f.Matches(r) {
			return false, nil
		}
	}
	return true, nil
}

// Matches checks a rendered driver row against the filter
func (f DriverFilter) Matches(r ui.DriverRow) bool {
	if f.VehicleAssigned != "" && isYes(f.VehicleAssigned) != hasValue(r.Vehicle) {
		return false
	}
	if f.PrimaryDriver != "" && isYes(f.PrimaryDriver) != r.IsPrimaryDriver {
		return false
	}
	if f.BehaviourScore != "" {
		score, err := strconv.ParseFloat(strings.TrimSpace(r.BehaviorScore), 64)
		if err != nil || !ScoreInRange(f.BehaviourScore, score) {
			return false
		}
	}
	return true
}

// ScoreInRange checks the score is within an inclusive "lo-hi" range, "lo+" has no upper bound
func ScoreInRange(rng string, score float64) bool {
	rng = strings.TrimSpace(rng)
	if lo, ok := strings.CutSuffix(rng, "+"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		return err == nil && score >= v
	}
	loS, hiS, ok := strings.Cut(rng, "-")
	if !ok {
		return false
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(loS), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(hiS), 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return score >= lo && score <= hi
}

// parseDriverRow maps table cells: #, name, vehicle, primary, score, authorization
func parseDriverRow(cells []string) ui.DriverRow {
	return ui.DriverRow{
		Name:            cell(cells, 1),
		Vehicle:         firstOr(cell(cells, 2), "-"),
		IsPrimaryDriver: isYes(cell(cells, 3)),
		BehaviorScore:   cell(cells, 4),
	}
}

func isYes(s string) bool {
	return strings.Contains(strings.ToLower(s), "yes")
}

// hasValue is false for blank and dash placeholders
func hasValue(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "-" && !strings.EqualFold(s, "unassigned")
}

func firstOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
