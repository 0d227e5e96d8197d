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

// CustomerRequiredErrors are shown when the customer form is submitted empty
var CustomerRequiredErrors = []string{
	"Company name is required",
	"Admin email is required",
	"Admin name is required",
	"Subdomain is required",
}

// AllFeatures is the feature access list of the customer form
var AllFeatures = []string{
	"Vehicle Tracking", "Route Planning", "Reporting", "Maintenance",
	"Fuel & Engine", "SOS Alerts", "Car Sharing", "Dashboard",
}

var customerSorts = []sortOption[ui.CustomerKey]{
	{"Customer Name (Z-A)", ui.CustomerByName, "-companyName"},
	{"Customer Name (A-Z)", ui.CustomerByName, "companyName"},
	{"Admin Name (A-Z)", ui.CustomerByAdmin, "orgAdminName"},
	{"Admin Name (Z-A)", ui.CustomerByAdmin, "-orgAdminName"},
}

// CustomerData is the add customer form content
type CustomerData struct {
	Name         string
	AdminEmail   string
	AdminName    string
	AdminPhone   string
	Country      string
	Industry     string
	BusinessType string
	Address      string
	License      string // license option text, e.g. "SaaS Cloud-based"
	MaxUsers     int
	MaxVehicles  int
	Features     []string // switches toggled, nil toggles AllFeatures
	SetDefault   bool
	Branding     BrandingData
	Subdomain    string
}

// NewCustomerData makes a unique customer for a test run
func NewCustomerData(now time.Time) CustomerData {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return CustomerData{
		Name:         "Customer" + ts[len(ts)-6:] + strings.ToLower(randomBase36(4)),
		AdminEmail:   "admin" + ts[len(ts)-5:] + "@example.com",
		AdminName:    "Admin" + ts[len(ts)-4:],
		AdminPhone:   "050" + strconv.Itoa(1000000+rand.IntN(9000000)), //nolint:gosec // test data
		Country:      "Saudi Arabia",
		Industry:     "Transportation",
		BusinessType: "Startup",
		Address:      "King Abdullah Road, Riyadh",
		License:      "SaaS Cloud-based",
		MaxUsers:     50 + rand.IntN(200),  //nolint:gosec // test data
		MaxVehicles:  100 + rand.IntN(500), //nolint:gosec // test data
		Features:     []string{"Dashboard"},
		Branding:     BrandingData{PrimaryColor: "#1A73E8", SecondaryColor: "#34A853"},
		Subdomain:    "customer" + ts[len(ts)-6:],
	}
}

// Customers is the admin customers screen
type Customers struct {
	kit
}

// Add opens the add customer form
func (c *Customers) Add() error {
	return c.clickText("button", "Add Customer")
}

// FillForm fills the customer form, blank selects fall back to the form defaults the app expects
func (c *Customers) FillForm(d CustomerData) error {
	if err := c.fill(
		[2]string{"#companyName", d.Name},
		[2]string{"#adminEmail", d.AdminEmail},
		[2]string{"#adminName", d.AdminName},
		[2]string{"#adminPhoneNumber", d.AdminPhone},
	); err != nil {
		return err
	}
	for _, sel := range [][2]string{
		{"Country", firstOr(d.Country, "United States")},
		{"Industry", firstOr(d.Industry, "Transportation")},
		{"Business Type", firstOr(d.BusinessType, "Startup")},
	} {
		if err := c.dropdown.SelectByClick(sel[0], sel[1]); err != nil {
			return err
		}
	}
	if err := c.fill([2]string{"#address", firstOr(d.Address, "123 Main St, Anytown, USA")}); err != nil {
		return err
	}
	if err := c.pickLicense(d.License); err != nil {
		return err
	}
	if err := c.fill(
		[2]string{`input[name="maxUsers"]`, positiveOr(d.MaxUsers, 50)},
		[2]string{`input[name="maxVehicles"]`, positiveOr(d.MaxVehicles, 100)},
	); err != nil {
		return err
	}

	features := d.Features
	if features == nil {
		features = AllFeatures
	}
	for _, f := range features {
		sw := c.page.GetByText(f, playwright.PageGetByTextOptions{Exact: playwright.Bool(true)}).First().
			Locator("..").Locator(`button[role="switch"]`)
		if err := sw.Click(); err != nil {
			return fmt.Errorf("feature %q: %w", f, err)
		}
	}
	if d.SetDefault {
		if err := c.page.Locator(`input[type="checkbox"][name="setAsDefault"]`).Check(); err != nil {
			return fmt.Errorf("set as default: %w", err)
		}
	}
	if err := c.setBranding(d.Branding); err != nil {
		return err
	}
	return c.fill([2]string{`input[name="subdomain"]`, firstOr(d.Subdomain, "customer")})
}

func (c *Customers) pickLicense(license string) error {
	if license == "" {
		return nil
	}
	if err := c.page.GetByText(license).First().Click(); err != nil {
		return fmt.Errorf("license %q: %w", license, err)
	}
	return nil
}

// Submit creates the customer
func (c *Customers) Submit() error {
	if err := c.clickText("button", "Create Customer"); err != nil {
		return err
	}
	c.page.WaitForTimeout(2000)
	return nil
}

// SubmitEmpty picks only the license and submits, the required errors must show up
func (c *Customers) SubmitEmpty(license string) error {
	if err := c.pickLicense(license); err != nil {
		return err
	}
	return c.Submit()
}

// RequiredErrors checks the validation messages of an empty form
func (c *Customers) RequiredErrors() error {
	return c.ExpectErrors(CustomerRequiredErrors...)
}

// NoResults returns the empty search message
func (c *Customers) NoResults() (string, error) {
	loc := c.page.Locator("text=No customers found").First()
	if err := loc.WaitFor(waitVisible(5 * time.Second)); err != nil {
		return "", fmt.Errorf("no customers message: %w", err)
	}
	return loc.TextContent()
}

// View opens the customer details modal
func (c *Customers) View(name string) error {
	return c.rowButton(name, 0)
}

// VerifyDetails checks the details modal shows the customer name and admin email
func (c *Customers) VerifyDetails(name, adminEmail string) error {
	if err := c.page.Locator("h1", playwright.PageLocatorOptions{HasText: "View Customer Details"}).First().
		WaitFor(waitVisible(5 * time.Second)); err != nil {
		return fmt.Errorf("customer details modal: %w", err)
	}
	info := c.page.Locator(`h3:has-text("Customer information")`).First()
	if err := info.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("customer information: %w", err)
	}
	txt, err := info.Locator("../../..").TextContent()
	if err != nil {
		return fmt.Errorf("customer information text: %w", err)
	}
	if !containsAll(txt, name, adminEmail) {
		return fmt.Errorf("customer details %q without %q or %q: %w", txt, name, adminEmail, ui.ErrMismatch)
	}
	return nil
}

// Edit opens the edit form of the customer
func (c *Customers) Edit(name string) error {
	if err := c.rowButton(name, 1); err != nil {
		return err
	}
	return c.page.Locator(`input[name="adminEmail"]`).WaitFor(waitVisible(10 * time.Second))
}

// UpdateAdminEmail changes the admin email of the open form
func (c *Customers) UpdateAdminEmail(email string) error {
	return c.page.Locator(`input[name="adminEmail"]`).Fill(email)
}

// SaveEdit submits the edit form
func (c *Customers) SaveEdit() error {
	if err := c.clickText("button", "Update Customer"); err != nil {
		return err
	}
	c.page.WaitForTimeout(1500)
	return nil
}

// Delete removes the customer, the dialog asks to type DELETE
func (c *Customers) Delete(name string) error {
	if err := c.rowButton(name, 2); err != nil {
		return err
	}
	return c.confirmDelete(`input[placeholder="DELETE"]`, "Delete Permanently")
}

// FilterDeployment checks the deployment type, SaaS or On-Premise
func (c *Customers) FilterDeployment(value string) error {
	return c.Filter.SelectCheckbox("Deployment Type", value)
}

// ApplyFilters clicks Apply and returns organizations of the refreshed list
func (c *Customers) ApplyFilters() ([]ui.Organization, error) {
	return c.API.Organizations("", c.Filter.Apply)
}

// AllDisplayed checks the empty state is not shown
func (c *Customers) AllDisplayed() bool {
	c.page.WaitForTimeout(1500)
	return !visible(c.page.Locator("text=/No customers found/i").First())
}

// SortBy picks the sort option and returns organizations of the sorted request with the key
func (c *Customers) SortBy(option string) ([]ui.Organization, ui.CustomerKey, error) {
	key, param := lookupSort(customerSorts, option)
	recs, err := c.API.Organizations("sorts="+param, func() error { return c.Sort.Select(option) })
	return recs, key, err
}

// Rows reads the customers table, the name and admin are the first spans of their cells
func (c *Customers) Rows() ([]ui.CustomerRow, error) {
	c.page.WaitForTimeout(1500)
	rows := c.page.Locator(rowSelector).Filter(playwright.LocatorFilterOptions{HasNotText: reNoRow})
	n, err := rows.Count()
	if err != nil {
		return nil, fmt.Errorf("count customer rows: %w", err)
	}
	res := make([]ui.CustomerRow, 0, n)
	for i := 0; i < n; i++ {
		row := rows.Nth(i)
		res = append(res, ui.CustomerRow{
			CustomerName: strings.TrimSpace(textOrEmpty(row.Locator("xpath=./td[2]//span").First())),
			AdminName:    firstOr(strings.TrimSpace(textOrEmpty(row.Locator("xpath=./td[3]//span").First())), "-"),
		})
	}
	return res, nil
}

func positiveOr(v, def int) string {
	if v <= 0 {
		v = def
	}
	return strconv.Itoa(v)
}
