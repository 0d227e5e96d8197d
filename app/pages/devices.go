package pages

import (
	"strings"

	"github.com/umputun/fleetcheck/app/ui"
)

// DeviceRequiredErrors are shown when the device form is saved with blank inputs
var DeviceRequiredErrors = []string{
	"IMEI is required",
	"Phone Number is required",
	"Device username is required",
	"Device password is required",
}

var deviceSorts = []sortOption[ui.DeviceKey]{
	{"Model (Z-A)", ui.DeviceByModel, "-Model"},
	{"Model (A-Z)", ui.DeviceByModel, "Model"},
	{"Manufacturer (A-Z)", ui.DeviceByManufacturer, "Manufacturer"},
	{"Manufacturer (Z-A)", ui.DeviceByManufacturer, "-Manufacturer"},
	{"Newest", ui.DeviceByID, "id"},
	{"Oldest", ui.DeviceByID, "-id"},
}

// DeviceSortColumns maps sort keys to the table column they order
var DeviceSortColumns = map[ui.DeviceKey]int{
	ui.DeviceByManufacturer: 1,
	ui.DeviceByModel:        2,
}

// DeviceData is the device form content
type DeviceData struct {
	Manufacturer string
	Model        string
	IMEI         string
	UserName     string
	Password     string
	PhoneNumber  string
}

// DeviceFilter is what the device filter dialog was set to
type DeviceFilter struct {
	Assigned     string
	Manufacturer string
	Model        string
	Status       string
}

// Devices is the tracking devices screen
type Devices struct {
	kit
}

// Add opens the add device form
func (d *Devices) Add() error {
	return d.clickText("button", "Add Device")
}

// FillForm fills the device form
func (d *Devices) FillForm(data DeviceData) error {
	if data.Manufacturer != "" {
		if err := d.dropdown.SelectByKeyboard("Manufacturer", data.Manufacturer); err != nil {
			return err
		}
	}
	if data.Model != "" {
		if err := d.dropdown.SelectByKeyboard("Model", data.Model); err != nil {
			return err
		}
	}
	for _, f := range [][2]string{{"imei", data.IMEI}, {"userName", data.UserName}, {"password", data.Password},
		{"phoneNumber", data.PhoneNumber}} {
		if err := d.page.Locator(`input[name="` + f[0] + `"]`).Fill(f[1]); err != nil {
			return err
		}
	}
	return nil
}

// Submit saves a new device
func (d *Devices) Submit() error {
	return d.clickText("button", "Save Device")
}

// Edit opens the edit form of the device found by imei
func (d *Devices) Edit(imei string) error {
	return d.rowButton(imei, 0)
}

// SaveEdit submits the edit form
func (d *Devices) SaveEdit() error {
	return d.clickText("button", "Save Changes")
}

// Delete removes the device, the dialog asks to type DELETE
func (d *Devices) Delete(imei string) error {
	if err := d.rowButton(imei, 1); err != nil {
		return err
	}
	return d.confirmDelete(`input[placeholder="DELETE"]`, "Delete Device")
}

// SaveDisabled checks the form submit button is disabled
func (d *Devices) SaveDisabled() bool {
	return d.IsDisabled(`button[form="device-form"]`)
}

// RequiredErrors checks all field errors are shown
func (d *Devices) RequiredErrors() error {
	return d.ExpectErrors(DeviceRequiredErrors...)
}

// NoMatches checks the empty result message is shown
func (d *Devices) NoMatches() bool {
	return visible(d.page.Locator("text=/No devices found matching your criteria/i").First())
}

// SetFilter selects every non-empty value of f in the open filter dialog
func (d *Devices) SetFilter(f DeviceFilter) error {
	if f.Assigned != "" {
		if err := d.Filter.SelectRadio("Device Assigned", f.Assigned); err != nil {
			return err
		}
	}
	if f.Manufacturer != "" {
		if err := d.Filter.SelectDropdown("Manufacturer", f.Manufacturer); err != nil {
			return err
		}
	}
	if f.Model != "" {
		if err := d.Filter.SelectDropdown("Model", f.Model); err != nil {
			return err
		}
	}
	if f.Status != "" {
		return d.Filter.SelectCheckbox("Status", f.Status)
	}
	return nil
}

// ApplyFilters clicks Apply and returns devices of the filtered request
func (d *Devices) ApplyFilters() ([]ui.Device, error) {
	return d.API.Devices("filters=", d.Filter.Apply)
}

// SortBy picks the sort option and returns the api records of the sorted request with the key
func (d *Devices) SortBy(option string) ([]ui.Device, ui.DeviceKey, error) {
	key, param := lookupSort(deviceSorts, option)
	recs, err := d.API.Devices("sorts="+param, func() error { return d.Sort.Select(option) })
	return recs, key, err
}

// Rows reads the devices table
func (d *Devices) Rows() ([]ui.DeviceRow, error) {
	cells, err := d.cellTexts()
	if err != nil {
		return nil, err
	}
	res := make([]ui.DeviceRow, 0, len(cells))
	for _, c := range cells {
		res = append(res, parseDeviceRow(c))
	}
	return res, nil
}

// VerifyFiltered checks rows against the filter
func (d *Devices) VerifyFiltered(f DeviceFilter) (bool, error) {
	rows, err := d.Rows()
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return visible(d.page.Locator("text=/No devices|No results/i").First()), nil
	}
	for _, r := range rows[:min(len(rows), 10)] {
		if !f.Matches(r) {
			return false, nil
		}
	}
	return true, nil
}

// Matches checks a rendered device row against the filter, Assigned can't be seen in the row
func (f DeviceFilter) Matches(r ui.DeviceRow) bool {
	if f.Manufacturer != "" && !strings.EqualFold(strings.TrimSpace(r.Manufacturer), f.Manufacturer) {
		return false
	}
	if f.Model != "" && !strings.EqualFold(strings.TrimSpace(r.Model), f.Model) {
		return false
	}
	if f.Status != "" && !strings.EqualFold(r.Status, f.Status) {
		return false
	}
	return true
}

// parseDeviceRow maps table cells: id, manufacturer, model, imei; status is whichever cell says online/offline
func parseDeviceRow(cells []string) ui.DeviceRow {
	row := ui.DeviceRow{
		ID:           cell(cells, 0),
		Manufacturer: cell(cells, 1),
		Model:        cell(cells, 2),
		IMEI:         cell(cells, 3),
	}
	for _, c := range cells {
		lc := strings.ToLower(c)
		if strings.Contains(lc, "offline") {
			row.Status = "Offline"
			break
		}
		if strings.Contains(lc, "online") {
			row.Status = "Online"
			break
		}
	}
	return row
}
