package pages

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/config"
)

// Login is the sign-in screen
type Login struct {
	page    playwright.Page
	baseURL string
}

// Open navigates to /login and waits for the form
func (l *Login) Open() error {
	url := strings.TrimRight(l.baseURL, "/") + "/login"
	if _, err := l.page.Goto(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	if err := l.page.Locator(`input[name="email"]`).WaitFor(waitVisible(15 * time.Second)); err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	return nil
}

// SignIn submits the credentials and waits for the network to settle
func (l *Login) SignIn(c config.Credentials) error {
	if err := l.page.Locator(`input[name="email"]`).Fill(c.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := l.page.Locator(`input[name="password"]`).Fill(c.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := l.page.Locator(`button[type="submit"]`).Click(); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := l.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: playwright.LoadStateNetworkidle}); err != nil {
		return fmt.Errorf("wait after login: %w", err)
	}
	log.Printf("[DEBUG] signed in as %s, at %s", c.Email, l.page.URL())
	return nil
}

// OpenAndSignIn is Open followed by SignIn
func (l *Login) OpenAndSignIn(c config.Credentials) error {
	if err := l.Open(); err != nil {
		return err
	}
	return l.SignIn(c)
}

// Header is the top bar with the avatar menu
type Header struct {
	page playwright.Page
}

var reLogout = regexp.MustCompile(`(?i)log\s*out`)

// OpenProfile goes to My Profile through the avatar menu
func (h *Header) OpenProfile() error {
	if err := h.openMenu(); err != nil {
		return err
	}
	if err := h.page.GetByRole(*playwright.AriaRoleMenuitem, playwright.PageGetByRoleOptions{Name: "My Profile"}).Click(); err != nil {
		return fmt.Errorf("my profile: %w", err)
	}
	if err := h.page.Locator("text=Account Details").First().WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("profile screen: %w", err)
	}
	return nil
}

// Logout signs out and waits for the login form
func (h *Header) Logout() error {
	if err := h.openMenu(); err != nil {
		return err
	}
	item := h.page.Locator(`[data-slot="dropdown-menu-item"]`).Filter(playwright.LocatorFilterOptions{HasText: reLogout}).First()
	if err := item.Click(); err != nil {
		return fmt.Errorf("logout item: %w", err)
	}
	if err := h.page.Locator(`[name="email"]`).WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("login form after logout: %w", err)
	}
	return nil
}

// IsLoggedIn checks the dashboard heading is shown
func (h *Header) IsLoggedIn() bool {
	loc := h.page.Locator(`h1:has-text("Fleet Overview")`).First()
	return loc.WaitFor(waitVisible(10*time.Second)) == nil
}

func (h *Header) openMenu() error {
	if err := h.page.Locator(`[data-slot="avatar"]`).First().Click(); err != nil {
		return fmt.Errorf("avatar menu: %w", err)
	}
	return nil
}

// Section is a sidebar entry: its caption and the url path it leads to
type Section struct {
	Label string
	Path  string
}

// sidebar sections
var (
	UsersAndRolesSection = Section{Label: "Users & Roles", Path: "/users-and-roles"}
	DriversSection       = Section{Label: "Drivers", Path: "/drivers"}
	SchedulingSection    = Section{Label: "Scheduling", Path: "/scheduling"}
	RoutesSection        = Section{Label: "Routes", Path: "/routes"}
	DevicesSection       = Section{Label: "Devices", Path: "/devices"}
	VehiclesSection      = Section{Label: "Vehicles", Path: "/vehicles"}
	FleetGroupsSection   = Section{Label: "Fleet Groups", Path: "/groups"}
	CompanySection       = Section{Label: "Company", Path: "/company-detail"}
	FleetTrackingSection = Section{Label: "Fleet Tracking", Path: "/fleet-tracking"}
	CustomersSection     = Section{Label: "Customers", Path: "/customers"}
	MaintenanceSection   = Section{Label: "Maintenance", Path: "/maintenance"}
)

// Sidebar is the navigation menu
type Sidebar struct {
	page playwright.Page
}

// Navigate clicks the section button, or its link, and waits for the url
func (s *Sidebar) Navigate(sec Section) error {
	btn := s.page.Locator(`button[data-slot="sidebar-menu-button"]:has-text(` + strconv.Quote(sec.Label) + `)`)
	if n, err := btn.Count(); err != nil || n == 0 {
		btn = s.page.Locator(`a[href$=` + strconv.Quote(sec.Path) + `]`)
	}
	if err := btn.First().Click(); err != nil {
		return fmt.Errorf("sidebar %s: %w", sec.Label, err)
	}
	if err := s.page.WaitForURL(sectionURL(sec)); err != nil {
		return fmt.Errorf("wait for %s: %w", sec.Path, err)
	}
	return nil
}

func sectionURL(sec Section) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(sec.Path) + `$`)
}

// EmptyState is the placeholder shown by lists without records
type EmptyState struct {
	page playwright.Page
}

// Message returns the empty state heading
func (e *EmptyState) Message() (string, error) {
	s, err := e.page.Locator("h2.font-semibold").First().InnerText()
	if err != nil {
		return "", fmt.Errorf("empty state: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// FleetTracking is the live map screen
type FleetTracking struct {
	kit
}

// SearchRoute filters the tracked vehicles list
func (f *FleetTracking) SearchRoute(name string) error {
	if err := f.page.Locator(searchSelector).First().Fill(name); err != nil {
		return fmt.Errorf("search %q: %w", name, err)
	}
	f.page.WaitForTimeout(2000)
	return nil
}

// IsTracked checks a tracked vehicle card shows the route
func (f *FleetTracking) IsTracked(route string) bool {
	return visible(f.page.Locator(".tracked h3", playwright.PageLocatorOptions{HasText: route}).First())
}
