package pages

import (
	"github.com/playwright-community/playwright-go"

	"github.com/umputun/fleetcheck/app/config"
)

// App is every screen of the fleet application bound to one browser page
type App struct {
	Login      *Login
	AdminLogin *Login
	Header     *Header
	Sidebar    *Sidebar
	EmptyState *EmptyState

	Profile       *Profile
	Company       *Company
	Branding      *Branding
	Vehicles      *Vehicles
	Drivers       *Drivers
	Devices       *Devices
	Routes        *Routes
	Scheduling    *Scheduling
	FleetGroups   *FleetGroups
	Customers     *Customers
	Users         *UsersAndRoles
	FleetTracking *FleetTracking
	Maintenance   *Maintenance
}

// New makes page objects for the page, urls and api timeout come from the profile
func New(page playwright.Page, p *config.Profile) *App {
	k := newKit(page, p.Timeouts.API)
	return &App{
		Login:      &Login{page: page, baseURL: p.BaseURL},
		AdminLogin: &Login{page: page, baseURL: p.Admin()},
		Header:     &Header{page: page},
		Sidebar:    &Sidebar{page: page},
		EmptyState: &EmptyState{page: page},

		Profile:       &Profile{kit: k},
		Company:       &Company{kit: k},
		Branding:      &Branding{kit: k},
		Vehicles:      &Vehicles{kit: k},
		Drivers:       &Drivers{kit: k},
		Devices:       &Devices{kit: k},
		Routes:        &Routes{kit: k},
		Scheduling:    &Scheduling{kit: k},
		FleetGroups:   &FleetGroups{kit: k},
		Customers:     &Customers{kit: k},
		Users:         &UsersAndRoles{kit: k},
		FleetTracking: &FleetTracking{kit: k},
		Maintenance:   &Maintenance{kit: k},
	}
}
