package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/umputun/fleetcheck/app/ui"
)

// ServiceRequiredErrors are the messages shown when the service form is saved empty
var ServiceRequiredErrors = []string{
	"Vehicle is required",
	"Service Type is required",
	"Service Date is required",
}

// ServiceData is the service log form content. Dates are YYYY-MM-DD, empty fields are skipped.
// Vehicle is walked to with the keyboard, ServiceType is picked with the pointer.
type ServiceData struct {
	Vehicle         string
	ServiceType     string
	Workshop        string
	ServiceDate     string
	NextServiceDate string
	Notes           string
	Invoice         string
	Documents       []string
}

// NewServiceData makes a service record with a unique workshop name for a test run
func NewServiceData(now time.Time) ServiceData {
	return ServiceData{
		Vehicle:     "CQT-1274",
		ServiceType: "Brake Inspection",
		Workshop:    "Workshop " + strings.ToUpper(uniqueID("W", now)),
		ServiceDate: now.Format("2006-01-02"),
		Notes:       "Automated service record",
	}
}

// Maintenance is the service log screen with its add form
type Maintenance struct {
	kit
}

// Add opens the log service form
func (m *Maintenance) Add() error {
	return m.clickText("button", "Log Service")
}

// FillForm fills the service form
func (m *Maintenance) FillForm(d ServiceData) error {
	if d.Vehicle != "" {
		if err := m.dropdown.SelectByKeyboard("Vehicle", d.Vehicle); err != nil {
			return err
		}
	}
	if d.ServiceType != "" {
		if err := m.dropdown.SelectByClick("Service Type", d.ServiceType); err != nil {
			return err
		}
	}
	if err := m.fill(
		[2]string{`input[name="workshop"]`, d.Workshop},
		[2]string{`textarea[name="notes"]`, d.Notes},
	); err != nil {
		return err
	}

	if d.ServiceDate != "" {
		if err := m.dates.SetByLabel("Service Date", d.ServiceDate); err != nil {
			return err
		}
	}
	if d.NextServiceDate != "" {
		if err := m.dates.SetByLabel("Next Service Date", d.NextServiceDate); err != nil {
			return err
		}
	}

	if d.Invoice != "" {
		if err := m.files.Upload("Invoice", d.Invoice); err != nil {
			return err
		}
	}
	if len(d.Documents) > 0 {
		return m.files.UploadMany(d.Documents)
	}
	return nil
}

// TypeServiceType picks the service type by typing its first letter
func (m *Maintenance) TypeServiceType(serviceType string) error {
	return m.dropdown.SelectByTyping("Service Type", serviceType)
}

// ServiceTypes lists the options of the service type dropdown
func (m *Maintenance) ServiceTypes() ([]string, error) {
	return m.dropdown.Options("Service Type")
}

// HasVehicleOption checks the vehicle dropdown offers the plate
func (m *Maintenance) HasVehicleOption(plate string) bool {
	return m.dropdown.IsOptionAvailable("Vehicle", plate)
}

// Selected returns the value shown by the dropdown of the label
func (m *Maintenance) Selected(label string) (string, error) {
	return m.dropdown.SelectedValue(label)
}

// SelectedDate returns the date shown by the date field of the label
func (m *Maintenance) SelectedDate(label string) (string, error) {
	return m.dates.Selected(label)
}

// Save clicks the save button without waiting for the list
func (m *Maintenance) Save() error {
	return m.clickText("button", "Save Service")
}

// Submit saves the form and returns the service log the list reloaded with
func (m *Maintenance) Submit() ([]ui.ServiceRecord, error) {
	return m.API.Maintenance("", m.Save)
}

// RequiredErrors checks all required field errors are shown
func (m *Maintenance) RequiredErrors() error {
	return m.ExpectErrors(ServiceRequiredErrors...)
}

// FindService returns the record logged at the workshop
func FindService(recs []ui.ServiceRecord, workshop string) (ui.ServiceRecord, error) {
	for _, r := range recs {
		if r.Workshop == workshop {
			return r, nil
		}
	}
	return ui.ServiceRecord{}, fmt.Errorf("service at %q in %d records: %w", workshop, len(recs), ui.ErrNotFound)
}
