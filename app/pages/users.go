package pages

import (
	"fmt"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"
)

// UserSortOptions are the sort menu entries of the users table
var UserSortOptions = []string{
	"Newest", "Oldest", "Email (A-Z)", "Email (Z-A)",
	"Last Login (Most Recent)", "Last Login (Least Recent)",
}

// Roles a user can be invited with
const (
	RoleDriver        = "Driver"
	RoleFleetAdmin    = "Fleet Admin"
	RoleFleetManager  = "Fleet Manager"
	RoleOrgAdmin      = "Organization Admin"
	RoleSecurityAdmin = "Security Admin"
)

// UserData is the invite form content
type UserData struct {
	FullName string
	Email    string
	Phone    string
	Role     string
}

// NewUserData makes a unique invited user
func NewUserData(now time.Time) UserData {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return UserData{
		FullName: "AutomationTest_" + ts,
		Email:    "testdriver" + ts + "@automation.test",
		Phone:    "03001234567",
		Role:     RoleFleetAdmin,
	}
}

// UserFilter is what the users filter dialog was set to
type UserFilter struct {
	Role   string
	Status string
}

// UsersAndRoles is the users and roles screen
type UsersAndRoles struct {
	kit
}

// Invite opens the invite user form
func (u *UsersAndRoles) Invite() error {
	if err := u.clickText("button", "Invite User"); err != nil {
		return err
	}
	if err := u.page.Locator(`p:has-text("Invite new user")`).First().WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("invite form: %w", err)
	}
	return nil
}

// FillForm fills the invite or edit form, empty name and email are left untouched
func (u *UsersAndRoles) FillForm(d UserData) error {
	if err := u.fill(
		[2]string{`input[placeholder="Enter full name"]`, d.FullName},
		[2]string{`input[placeholder="Enter email address"]`, d.Email},
	); err != nil {
		return err
	}
	if err := u.page.Locator(`input[type="tel"]`).First().Fill(d.Phone); err != nil {
		return fmt.Errorf("phone: %w", err)
	}
	if d.Role == "" {
		return nil
	}
	if err := u.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Select Role(s)"}).Click(); err != nil {
		return fmt.Errorf("roles popover: %w", err)
	}
	// role entries render the name followed by its scope badge
	if err := u.page.Locator(`[role="dialog"] >> text=` + strconv.Quote(d.Role)).First().Click(); err != nil {
		return fmt.Errorf("role %q: %w", d.Role, err)
	}
	return u.page.Keyboard().Press("Escape")
}

// Submit sends the invite or saves the edit
func (u *UsersAndRoles) Submit() error {
	return u.click(`button:has-text("Send Invite"), button:has-text("Save Changes")`)
}

// SendInviteDisabled checks the invite button can't be pressed
func (u *UsersAndRoles) SendInviteDisabled() bool {
	return u.IsDisabled(`button:has-text("Send Invite")`)
}

// Edit opens the edit form of the user row
func (u *UsersAndRoles) Edit(name string) error {
	return u.rowButton(name, 0)
}

// Rename changes the full name of the open form
func (u *UsersAndRoles) Rename(name string) error {
	return u.page.Locator(`input[placeholder="Enter full name"]`).Fill(name)
}

// ResendInvite resends the invite of the user and confirms
func (u *UsersAndRoles) ResendInvite(name string) error {
	if err := u.rowButton(name, 1); err != nil {
		return err
	}
	return u.clickText("button", "Resend")
}

// Delete removes the pending invite
func (u *UsersAndRoles) Delete(name string) error {
	if err := u.rowButton(name, 2); err != nil {
		return err
	}
	return u.confirmDelete("", "Delete Invite")
}

// NoUsers checks the empty state is shown
func (u *UsersAndRoles) NoUsers() bool {
	return u.page.Locator("text=No users found").First().WaitFor(waitVisible(5*time.Second)) == nil
}

// SelectTab switches between the Users and Invites tabs
func (u *UsersAndRoles) SelectTab(name string) error {
	tabs := u.page.Locator(`span[data-testid="routes-main-tabs-count"]`)
	tab := tabs.Last()
	if name == "Users" {
		tab = tabs.First()
	}
	if err := tab.Click(); err != nil {
		return fmt.Errorf("tab %q: %w", name, err)
	}
	u.page.WaitForTimeout(500)
	return nil
}

// ToolbarVisible checks the table and its toolbar controls are shown
func (u *UsersAndRoles) ToolbarVisible() error {
	u.page.WaitForTimeout(1000)
	for _, sel := range []string{`div[data-slot="table-container"]`, `button:has-text("Invite User")`, searchSelector,
		`button:has-text("Filter")`, `button:has-text("Sort")`} {
		if !visible(u.page.Locator(sel).First()) {
			return fmt.Errorf("%s is not visible", sel)
		}
	}
	return nil
}

// ClearFiltersVisible checks the empty state offers to clear filters
func (u *UsersAndRoles) ClearFiltersVisible() bool {
	return visible(u.page.Locator(`button:has-text("Clear all filters")`).First())
}

// SetFilter selects the role and status of the open filter dialog
func (u *UsersAndRoles) SetFilter(f UserFilter) error {
	if f.Role != "" {
		if err := u.Filter.SelectDropdown("Role", f.Role); err != nil {
			return err
		}
	}
	if f.Status != "" {
		return u.Filter.SelectCheckbox("Status", f.Status)
	}
	return nil
}

// VerifyFiltered checks the first rows show the role and status of the filter
func (u *UsersAndRoles) VerifyFiltered(f UserFilter) (bool, error) {
	return u.rowsMatch("No users found", 10, f.Role, f.Status)
}
