package ui

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

// api endpoints of the fleet backend
const (
	EndpointDevices       = "/core/api/v1/devices"
	EndpointDrivers       = "/core/api/v1/drivers"
	EndpointGroups        = "/core/api/v1/groups"
	EndpointVehicles      = "/core/api/v1/vehicles"
	EndpointOrganizations = "/core/api/v1/organizations"
	EndpointRoutes        = "/core/api/v1/routes"
	EndpointSchedules     = "/core/api/v1/schedules"
	EndpointMaintenance   = "/core/api/v1/maintenance"
)

const defaultAPITimeout = 30 * time.Second

// ResponseMatch describes the api response to wait for. Method is optional.
type ResponseMatch struct {
	Endpoint string
	Query    string
	Method   string
}

// Matches checks a response url, request method and success flag against the match
func (m ResponseMatch) Matches(url, method string, ok bool) bool {
	if !ok || !strings.Contains(url, m.Endpoint) || !strings.Contains(url, m.Query) {
		return false
	}
	return m.Method == "" || strings.EqualFold(m.Method, method)
}

func (m ResponseMatch) String() string {
	return strings.TrimSpace(m.Method + " " + m.Endpoint + " ~" + m.Query)
}

// APIAssert captures api responses fired by ui actions and checks rendered rows against them
type APIAssert struct {
	page    playwright.Page
	timeout time.Duration
	now     func() time.Time
}

// NewAPIAssert makes APIAssert for the page, timeout 0 means 30s
func NewAPIAssert(page playwright.Page, timeout time.Duration) *APIAssert {
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	return &APIAssert{page: page, timeout: timeout, now: time.Now}
}

// Capture runs trigger and waits, in parallel, for the first successful response matching m.
// The response is expected to be {"results": [...]}.
func Capture[T any](a *APIAssert, m ResponseMatch, trigger func() error) ([]T, error) {
	ev, err := a.page.ExpectEvent("response", trigger, playwright.PageExpectEventOptions{
		Predicate: responsePredicate(m),
		Timeout:   playwright.Float(float64(a.timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", m, err)
	}
	resp, ok := ev.(playwright.Response)
	if !ok {
		return nil, fmt.Errorf("wait for %s: unexpected event %T: %w", m, ev, ErrMismatch)
	}
	log.Printf("[DEBUG] api captured for %s: %s", m.Endpoint, resp.URL())

	var payload struct {
		Results []T `json:"results"`
	}
	if err := resp.JSON(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resp.URL(), err)
	}
	return payload.Results, nil
}

// responsePredicate filters "response" events of the page. Event predicates get the raw event
// value, so it has to take any.
func responsePredicate(m ResponseMatch) func(any) bool {
	return func(v any) bool {
		r, ok := v.(playwright.Response)
		if !ok || r == nil {
			return false
		}
		req := r.Request()
		if req == nil {
			return false
		}
		return m.Matches(r.URL(), req.Method(), r.Ok())
	}
}

// Devices waits for the devices list request, query is usually the sort param
func (a *APIAssert) Devices(query string, trigger func() error) ([]Device, error) {
	return Capture[Device](a, ResponseMatch{Endpoint: EndpointDevices, Query: query}, trigger)
}

// Drivers waits for the drivers list request, empty query means "sorts="
func (a *APIAssert) Drivers(query string, trigger func() error) ([]Driver, error) {
	return Capture[Driver](a, ResponseMatch{Endpoint: EndpointDrivers, Query: orDefault(query, "sorts=")}, trigger)
}

// Groups waits for the fleet groups list request, empty query means "filters="
func (a *APIAssert) Groups(query string, trigger func() error) ([]Group, error) {
	return Capture[Group](a, ResponseMatch{Endpoint: EndpointGroups, Query: orDefault(query, "filters=")}, trigger)
}

// Vehicles waits for the vehicles list request, empty query means "sorts="
func (a *APIAssert) Vehicles(query string, trigger func() error) ([]Vehicle, error) {
	return Capture[Vehicle](a, ResponseMatch{Endpoint: EndpointVehicles, Query: orDefault(query, "sorts=")}, trigger)
}

// Organizations waits for the customers list request, empty query means "sorts="
func (a *APIAssert) Organizations(query string, trigger func() error) ([]Organization, error) {
	return Capture[Organization](a, ResponseMatch{Endpoint: EndpointOrganizations, Query: orDefault(query, "sorts=")}, trigger)
}

// Routes waits for any GET of the routes list
func (a *APIAssert) Routes(trigger func() error) ([]Route, error) {
	return Capture[Route](a, ResponseMatch{Endpoint: EndpointRoutes, Method: http.MethodGet}, trigger)
}

// Schedules waits for a GET of schedules, empty query means "startDate"
func (a *APIAssert) Schedules(query string, trigger func() error) ([]Schedule, error) {
	return Capture[Schedule](a, ResponseMatch{Endpoint: EndpointSchedules, Query: orDefault(query, "startDate"), Method: http.MethodGet}, trigger)
}

// Maintenance waits for a GET of the service log, empty query means "sorts="
func (a *APIAssert) Maintenance(query string, trigger func() error) ([]ServiceRecord, error) {
	return Capture[ServiceRecord](a, ResponseMatch{Endpoint: EndpointMaintenance, Query: orDefault(query, "sorts="), Method: http.MethodGet}, trigger)
}

// AssertDevices compares device rows with the api results by the sort key
func (a *APIAssert) AssertDevices(rows []DeviceRow, api []Device, key DeviceKey) error {
	if len(api) == 0 {
		return a.expectEmptyState("devices", "No devices|No results")
	}
	return matchByIndex("devices", DeviceRowValues(rows, key), DeviceValues(api, key))
}

// AssertDrivers compares driver rows with the api results by the sort key
func (a *APIAssert) AssertDrivers(rows []DriverRow, api []Driver, key DriverKey) error {
	if len(api) == 0 {
		return a.expectEmptyState("drivers", "No drivers|No results")
	}
	return matchByIndex("drivers", DriverRowValues(rows, key), DriverValues(api, key))
}

// AssertGroups compares fleet group rows with the api results by the sort key
func (a *APIAssert) AssertGroups(rows []GroupRow, api []Group, key GroupKey) error {
	if len(api) == 0 {
		return a.expectEmptyState("fleet groups", "No results|No groups")
	}
	return matchByIndex("fleet groups", GroupRowValues(rows, key), GroupValues(api, key))
}

// AssertVehicles compares vehicle rows with the api results by the sort key
func (a *APIAssert) AssertVehicles(rows []VehicleRow, api []Vehicle, key VehicleKey) error {
	if len(api) == 0 {
		return a.expectEmptyState("vehicles", "No vehicles found|No results")
	}
	return matchByIndex("vehicles", VehicleRowValues(rows, key, a.now()), VehicleValues(api, key))
}

// AssertCustomers compares customer rows with the api results by the sort key
func (a *APIAssert) AssertCustomers(rows []CustomerRow, api []Organization, key CustomerKey) error {
	if len(api) == 0 {
		return a.expectEmptyState("customers", "No customers found|No results")
	}
	return matchByIndex("customers", CustomerRowValues(rows, key), CustomerValues(api, key))
}

// AssertRoutes compares route cards with the api results by the sort key
func (a *APIAssert) AssertRoutes(cards []RouteCard, api []Route, key RouteKey) error {
	if len(api) == 0 {
		return a.expectEmptyState("routes", "No routes found|No results")
	}
	return matchByIndex("routes", RouteCardValues(cards, key), RouteValues(api, key))
}

// expectEmptyState checks the empty state text is shown when the api returned nothing
func (a *APIAssert) expectEmptyState(what, pattern string) error {
	if isVisible(a.page.Locator("text=/" + pattern + "/i").First()) {
		return nil
	}
	return fmt.Errorf("api returned no %s but empty state is not shown: %w", what, ErrMismatch)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
