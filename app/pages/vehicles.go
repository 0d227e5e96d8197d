package pages

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/ui"
)

// VehicleRequiredErrors are the messages shown when the vehicle form is saved empty
var VehicleRequiredErrors = []string{
	"Vehicle Plate No. is required",
	"VIN Number is required",
	"Year is required",
	"Make is required",
	"Model is required",
	"Vehicle Type is required",
	"Fuel Type is required",
	"Color is required",
	"Max Weight is required",
	"Number of seats is required",
	"Number of tires is required",
	"Current mileage is required",
	"Speed Threshold is required",
	"Insurance Provider Name is required",
	"Policy Number is required",
	"Coverage Type is required",
	"Registration Number is required",
}

// vehicle sort options and the api sort params they produce
var vehicleSorts = []sortOption[ui.VehicleKey]{
	{"Vehicle Plate No. (Z-A)", ui.VehicleByPlate, "-PlateNo"},
	{"Vehicle Plate No. (A-Z)", ui.VehicleByPlate, "PlateNo"},
	{"Assigned To (A-Z)", ui.VehicleByAssignee, "AssignedDriver.FirstName"},
	{"Assigned To (Z-A)", ui.VehicleByAssignee, "-AssignedDriver.FirstName"},
	{"Policy Expiry (Soon)", ui.VehicleByPolicyExpiry, "policyExpiryDate"},
	{"Policy Expiry (Latest)", ui.VehicleByPolicyExpiry, "-policyExpiryDate"},
}

// VehicleSortColumns maps sort option prefixes to the table column they order
var VehicleSortColumns = map[ui.VehicleKey]int{
	ui.VehicleByPlate:        1,
	ui.VehicleByAssignee:     2,
	ui.VehicleByPolicyExpiry: 7,
}

// VehicleData is the vehicle form content. Dates are YYYY-MM-DD, empty fields are skipped.
type VehicleData struct {
	PlateNo        string
	VIN            string
	Year           string
	Make           string
	Model          string
	VehicleType    string
	FuelType       string
	Color          string
	MaxWeight      string
	Seats          string
	Tires          string
	Mileage        string
	SpeedThreshold string

	InsuranceProvider string
	PolicyNumber      string
	PolicyExpiry      string
	CoverageType      string

	RegistrationNumber string
	RegistrationExpiry string
	RegistrationState  string

	Notes           string
	InsuranceDoc    string
	RegistrationDoc string
	AdditionalDocs  []string
}

// NewVehicleData makes a unique vehicle for a test run
func NewVehicleData(now time.Time) VehicleData {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return VehicleData{
		PlateNo:            "AT" + ts[len(ts)-8:],
		VIN:                uniqueID("VIN", now),
		Year:               strconv.Itoa(2018 + rand.IntN(9)), //nolint:gosec // test data
		Make:               "Toyota",
		Model:              "Automation Model",
		VehicleType:        "SUV",
		FuelType:           "Diesel",
		Color:              "Grey",
		MaxWeight:          "2500",
		Seats:              "5",
		Tires:              "4",
		Mileage:            "6000",
		SpeedThreshold:     "160",
		InsuranceProvider:  "Allianz",
		PolicyNumber:       uniqueID("POL", now),
		PolicyExpiry:       now.AddDate(1, 0, 0).Format("2006-01-02"),
		CoverageType:       "Comprehensive",
		RegistrationNumber: uniqueID("REG", now),
		RegistrationExpiry: now.AddDate(1, 0, 0).Format("2006-01-02"),
		RegistrationState:  "Jeddah",
		Notes:              "Automated vehicle record",
	}
}

// MakeVIN returns a random test VIN, "VIN" followed by 8 upper-case base36 chars
func MakeVIN() string {
	return "VIN" + randomBase36(8)
}

// uniqueID is prefix + last 6 digits of the timestamp + 5 random chars, at most 15 chars long
func uniqueID(prefix string, now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	id := prefix + ts[len(ts)-6:] + strings.ToLower(randomBase36(5))
	if len(id) > 15 {
		id = id[:15]
	}
	return id
}

func randomBase36(n int) string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))] //nolint:gosec // test data
	}
	return string(b)
}

// Vehicles is the vehicles list screen with its add/edit form
type Vehicles struct {
	kit
}

// Add opens the add vehicle form
func (v *Vehicles) Add() error {
	return v.clickText("button", "Add Vehicle")
}

// FillForm fills the vehicle form
func (v *Vehicles) FillForm(d VehicleData) error {
	if err := v.fill(
		[2]string{`input[name="plateNo"]`, d.PlateNo},
		[2]string{`input[name="vinNumber"]`, d.VIN},
		[2]string{`input[name="year"]`, d.Year},
		[2]string{`input[name="make"]`, d.Make},
		[2]string{`input[name="model"]`, d.Model},
		[2]string{`input[name="color"]`, d.Color},
	); err != nil {
		return err
	}

	if d.VehicleType != "" {
		if err := v.dropdown.SelectByKeyboard("Vehicle Type", d.VehicleType); err != nil {
			return err
		}
	}
	if d.FuelType != "" {
		if err := v.dropdown.SelectByKeyboard("Fuel Type", d.FuelType); err != nil {
			return err
		}
	}
	if d.CoverageType != "" {
		if err := v.dropdown.SelectByClick("Coverage Type", d.CoverageType); err != nil {
			return err
		}
	}
	if d.RegistrationState != "" {
		if err := v.dropdown.SelectByKeyboard("State/Province", d.RegistrationState); err != nil {
			return err
		}
	}

	if err := v.fill(
		[2]string{`input[name="maxWeight"]`, d.MaxWeight},
		[2]string{`input[name="numberOfSeats"]`, d.Seats},
		[2]string{`input[name="numberOfTires"]`, d.Tires},
		[2]string{`input[name="currentMileage"]`, d.Mileage},
		[2]string{`input[name="speedThreshold"]`, d.SpeedThreshold},
		[2]string{`input[name="insuranceProviderName"]`, d.InsuranceProvider},
		[2]string{`input[name="insurancePolicyNumber"]`, d.PolicyNumber},
		[2]string{`input[name="registrationNumber"]`, d.RegistrationNumber},
		[2]string{`textarea[name="additionalNotes"]`, d.Notes},
	); err != nil {
		return err
	}

	if d.PolicyExpiry != "" {
		if err := v.dates.SetByTyping("Policy Expiry Date", d.PolicyExpiry); err != nil {
			return err
		}
	}
	if d.RegistrationExpiry != "" {
		if err := v.dates.SetByTyping("Registration Expiry Date", d.RegistrationExpiry); err != nil {
			return err
		}
	}

	if d.InsuranceDoc != "" {
		if err := v.files.Upload("Insurance Documents", d.InsuranceDoc); err != nil {
			return err
		}
	}
	if d.RegistrationDoc != "" {
		if err := v.files.Upload("Registration Documents", d.RegistrationDoc); err != nil {
			return err
		}
	}
	if len(d.AdditionalDocs) > 0 {
		return v.files.UploadMany(d.AdditionalDocs)
	}
	return nil
}

// Submit saves a new vehicle
func (v *Vehicles) Submit() error {
	return v.clickText("button", "Save Vehicle")
}

// View opens the details modal of the vehicle
func (v *Vehicles) View(plate string) error {
	return v.rowButton(plate, 0)
}

// Edit opens the edit form of the vehicle
func (v *Vehicles) Edit(plate string) error {
	if err := v.rowButton(plate, 1); err != nil {
		return err
	}
	v.page.WaitForTimeout(1500)
	return nil
}

// UpdateModel changes the model input of the open form
func (v *Vehicles) UpdateModel(model string) error {
	return v.page.Locator(`input[name="model"]`).Fill(model)
}

// SaveEdit submits the edit form
func (v *Vehicles) SaveEdit() error {
	return v.clickText("button", "Save Changes")
}

// Delete removes the vehicle through the row button and the confirmation dialog
func (v *Vehicles) Delete(plate string) error {
	if err := v.rowButton(plate, 2); err != nil {
		return err
	}
	return v.confirmDelete("", "Delete")
}

// VerifyDetails checks the details modal shows the plate and VIN
func (v *Vehicles) VerifyDetails(plate, vin string) error {
	header := v.page.Locator("p", playwright.PageLocatorOptions{HasText: "Vehicle Details"}).First()
	if err := header.WaitFor(waitVisible(5 * time.Second)); err != nil {
		return fmt.Errorf("vehicle details modal: %w", err)
	}
	info := v.page.Locator(`h3:has-text("Vehicle Information")`).First().
		Locator(`xpath=ancestor::div[contains(@class, "bg-card")]`).First()
	txt, err := info.TextContent()
	if err != nil {
		return fmt.Errorf("vehicle information: %w", err)
	}
	if !containsAll(txt, plate, vin) {
		return fmt.Errorf("vehicle details %q without plate %q or vin %q: %w", txt, plate, vin, ui.ErrMismatch)
	}
	return nil
}

// RequiredErrors checks all required field errors are shown
func (v *Vehicles) RequiredErrors() error {
	return v.ExpectErrors(VehicleRequiredErrors...)
}

// FilterPolicyRange sets the policy expiry range of the filter dialog
func (v *Vehicles) FilterPolicyRange(from, to string) error {
	return v.setRange("Policy Expiry Range", from, to)
}

// FilterRegistrationRange sets the registration expiry range of the filter dialog
func (v *Vehicles) FilterRegistrationRange(from, to string) error {
	return v.setRange("Registration Expiry Range", from, to)
}

func (v *Vehicles) setRange(section, from, to string) error {
	if err := v.dates.SetBySection(section, "From", from); err != nil {
		return err
	}
	return v.dates.SetBySection(section, "To", to)
}

// ApplyFilters clicks Apply and returns the vehicles the filtered request returned
func (v *Vehicles) ApplyFilters() ([]ui.Vehicle, error) {
	return v.API.Vehicles("filters=", v.Filter.Apply)
}

// SortBy picks the sort option and returns the api records of the sorted request with the
// compared key
func (v *Vehicles) SortBy(option string) ([]ui.Vehicle, ui.VehicleKey, error) {
	key, param := lookupSort(vehicleSorts, option)
	recs, err := v.API.Vehicles("sorts="+param, func() error { return v.Sort.Select(option) })
	return recs, key, err
}

// Rows reads the vehicles table
func (v *Vehicles) Rows() ([]ui.VehicleRow, error) {
	cells, err := v.cellTexts()
	if err != nil {
		return nil, err
	}
	res := make([]ui.VehicleRow, 0, len(cells))
	for _, c := range cells {
		res = append(res, parseVehicleRow(c))
	}
	return res, nil
}

// VerifyFiltered checks the first rows contain all criteria
func (v *Vehicles) VerifyFiltered(criteria ...string) (bool, error) {
	return v.rowsMatch("No vehicles found|No results", 10, criteria...)
}

// parseVehicleRow maps table cells, the first line of the vehicle cell is the plate
func parseVehicleRow(cells []string) ui.VehicleRow {
	plate := ""
	if f := strings.Fields(cell(cells, 1)); len(f) > 0 {
		plate = strings.ToLower(f[0])
	}
	return ui.VehicleRow{
		PlateNo:               plate,
		AssignedTo:            cell(cells, 2),
		Status:                cell(cells, 5),
		InsurancePolicyNumber: cell(cells, 6),
		PolicyExpiry:          cell(cells, 7),
		RegistrationNumber:    cell(cells, 8),
		RegistrationExpiry:    cell(cells, 9),
	}
}
