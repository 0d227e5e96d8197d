package ui

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

// Device is a record of the devices api
type Device struct {
	ID           int    `json:"id"`
	IMEI         string `json:"imei"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Status       string `json:"status,omitempty"`
	VehicleID    *int   `json:"vehicleId,omitempty"`
}

// Driver is a record of the drivers api
type Driver struct {
	ID              int     `json:"id"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName,omitempty"`
	Email           string  `json:"email"`
	MobileNumber    string  `json:"mobileNumber,omitempty"`
	Nationality     string  `json:"nationality,omitempty"`
	BehaviorScore   float64 `json:"behaviorScore"`
	IsPrimaryDriver bool    `json:"isPrimaryDriver"`
	VehiclePlateNo  string  `json:"vehiclePlateNo,omitempty"`
}

// Group is a record of the fleet groups api
type Group struct {
	ID        int    `json:"id"`
	GroupName string `json:"groupName"`
	Manager   string `json:"manager,omitempty"`
	CreatedBy string `json:"createdBy,omitempty"`
	Count     int    `json:"count"`
}

// Person is a nested name holder used by vehicles (driver) and organizations (orgAdmin)
type Person struct {
	Name string `json:"name"`
}

// Vehicle is a record of the vehicles api
type Vehicle struct {
	ID                     int     `json:"id"`
	PlateNo                string  `json:"plateNo,omitempty"`
	LicensePlate           string  `json:"licensePlate,omitempty"`
	VinNumber              string  `json:"vinNumber,omitempty"`
	Make                   string  `json:"make,omitempty"`
	Model                  string  `json:"model,omitempty"`
	VehicleType            string  `json:"vehicleType,omitempty"`
	FuelType               string  `json:"fuelType,omitempty"`
	AssignedTo             string  `json:"assignedTo,omitempty"`
	Driver                 *Person `json:"driver,omitempty"`
	FleetGroup             string  `json:"fleetGroup,omitempty"`
	PolicyExpiryDate       string  `json:"policyExpiryDate,omitempty"`
	RegistrationExpiryDate string  `json:"registrationExpiryDate,omitempty"`
}

// Organization is a record of the organizations (customers) api
type Organization struct {
	ID             int     `json:"id"`
	CompanyName    string  `json:"companyName"`
	OrgAdmin       *Person `json:"orgAdmin,omitempty"`
	AdminEmail     string  `json:"adminEmail,omitempty"`
	Country        string  `json:"country,omitempty"`
	Industry       string  `json:"industry,omitempty"`
	DeploymentType string  `json:"deploymentType,omitempty"`
	Subdomain      string  `json:"subdomain,omitempty"`
}

// Route is a record of the routes api, distance is in meters
type Route struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Distance      float64 `json:"distance"`
	Duration      int     `json:"duration,omitempty"`
	NumberOfStops int     `json:"numberOfStops"`
	CreatedBy     string  `json:"createdBy,omitempty"`
	Archived      bool    `json:"archived,omitempty"`
}

// Schedule is a record of the schedules api, a trip with its vehicle, drivers and route
type Schedule struct {
	ID              int              `json:"id"`
	Title           string           `json:"title"`
	Vehicle         *ScheduleVehicle `json:"vehicle,omitempty"`
	PrimaryDriver   *Person          `json:"primaryDriver,omitempty"`
	SecondaryDriver *Person          `json:"secondaryDriver,omitempty"`
	Route           *ScheduleRoute   `json:"route,omitempty"`
	StartDate       string           `json:"startDate"`
	EndDate         string           `json:"endDate,omitempty"`
	Recurrence      string           `json:"recurrence,omitempty"`
}

// ServiceRecord is a record of the maintenance api, one service of a vehicle. Dates are YYYY-MM-DD
// or RFC3339, files are stored by name.
type ServiceRecord struct {
	ID              int      `json:"id"`
	Vehicle         string   `json:"vehicle"`
	ServiceType     string   `json:"serviceType"`
	Workshop        string   `json:"workshop,omitempty"`
	ServiceDate     string   `json:"serviceDate"`
	NextServiceDate string   `json:"nextServiceDate,omitempty"`
	Invoice         string   `json:"invoice,omitempty"`
	Documents       []string `json:"documents,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// ScheduleVehicle is the vehicle of a trip with its fleet group
type ScheduleVehicle struct {
	ID      int    `json:"id"`
	PlateNo string `json:"plateNo"`
	Group   *Group `json:"group,omitempty"`
}

// ScheduleRoute is the route of a trip
type ScheduleRoute struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DeviceRow is a devices table row as rendered
type DeviceRow struct {
	ID, IMEI, Manufacturer, Model, Status string
}

// DriverRow is a drivers table row as rendered
type DriverRow struct {
	Name, Email, Vehicle, BehaviorScore string
	IsPrimaryDriver                     bool
}

// GroupRow is a fleet groups table row as rendered
type GroupRow struct {
	GroupName, Manager, CreatedBy, Vehicles string
}

// VehicleRow is a vehicles table row as rendered
type VehicleRow struct {
	PlateNo, AssignedTo, Status, InsurancePolicyNumber, RegistrationNumber string
	PolicyExpiry, RegistrationExpiry                                       string
}

// CustomerRow is a customers table row as rendered
type CustomerRow struct {
	CustomerName, AdminName string
}

// RouteCard is a route card as rendered: the title, the stats line ("12.5 Km ..."), the points badge
// and the owner from the "Created by" badge
type RouteCard struct {
	Name, Stats, Points, CreatedBy string
}

// DeviceKey selects the compared devices field
type DeviceKey string

// device sort keys
const (
	DeviceByModel        DeviceKey = "model"
	DeviceByManufacturer DeviceKey = "manufacturer"
	DeviceByID           DeviceKey = "id"
)

// DriverKey selects the compared drivers field
type DriverKey string

// driver sort keys
const (
	DriverByFirstName     DriverKey = "firstName"
	DriverByBehaviorScore DriverKey = "behaviorScore"
)

// GroupKey selects the compared fleet groups field
type GroupKey string

// fleet group sort keys
const (
	GroupByName  GroupKey = "groupName"
	GroupByCount GroupKey = "count"
)

// VehicleKey selects the compared vehicles field
type VehicleKey string

// vehicle sort keys, named after the sort option prefixes
const (
	VehicleByPlate              VehicleKey = "Vehicle Plate No."
	VehicleByAssignee           VehicleKey = "Assigned To"
	VehicleByPolicyExpiry       VehicleKey = "Policy Expiry"
	VehicleByRegistrationExpiry VehicleKey = "Registration Expiry"
)

// CustomerKey selects the compared customers field
type CustomerKey string

// customer sort keys
const (
	CustomerByName  CustomerKey = "Customer Name"
	CustomerByAdmin CustomerKey = "Admin Name"
)

// RouteKey selects the compared routes field, named after the sort options
type RouteKey string

// route sort keys
const (
	RouteNewest      RouteKey = "Newest"
	RouteOldest      RouteKey = "Oldest"
	RouteShortest    RouteKey = "Shortest Distance"
	RouteLongest     RouteKey = "Longest Distance"
	RouteFewestStops RouteKey = "Fewest Stops"
	RouteMostStops   RouteKey = "Most Stops"
)

const unassigned = "Unassigned"

var (
	reDistanceKm = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*Km`)
	rePoints     = regexp.MustCompile(`(?i)(\d+)\s+points`)
	reDigits     = regexp.MustCompile(`\d+`)
	reDMY        = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	reLeadFloat  = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)`)
)

// DeviceRowValues normalizes device rows for comparison
func DeviceRowValues(rows []DeviceRow, key DeviceKey) []string {
	return mapValues(rows, func(r DeviceRow) string {
		switch key {
		case DeviceByModel:
			return strings.TrimSpace(r.Model)
		case DeviceByManufacturer:
			return strings.TrimSpace(r.Manufacturer)
		default:
			return strings.TrimSpace(r.ID)
		}
	})
}

// DeviceValues normalizes device api records for comparison
func DeviceValues(recs []Device, key DeviceKey) []string {
	return mapValues(recs, func(r Device) string {
		switch key {
		case DeviceByModel:
			return strings.TrimSpace(r.Model)
		case DeviceByManufacturer:
			return strings.TrimSpace(r.Manufacturer)
		default:
			return strconv.Itoa(r.ID)
		}
	})
}

// DriverRowValues normalizes driver rows for comparison
func DriverRowValues(rows []DriverRow, key DriverKey) []string {
	return mapValues(rows, func(r DriverRow) string {
		switch key {
		case DriverByFirstName:
			return lower(r.Name)
		case DriverByBehaviorScore:
			return scoreText(r.BehaviorScore)
		default:
			return ""
		}
	})
}

// DriverValues normalizes driver api records for comparison
func DriverValues(recs []Driver, key DriverKey) []string {
	return mapValues(recs, func(r Driver) string {
		switch key {
		case DriverByFirstName:
			return lower(r.FirstName)
		case DriverByBehaviorScore:
			return strconv.FormatFloat(r.BehaviorScore, 'f', -1, 64)
		default:
			return ""
		}
	})
}

// scoreText reads a score cell like parseFloat does, "85.0" and "85%" become "85", "-" and empty become ""
func scoreText(cell string) string {
	m := reLeadFloat.FindString(strings.TrimSpace(cell))
	if m == "" {
		return ""
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GroupRowValues normalizes fleet group rows for comparison
func GroupRowValues(rows []GroupRow, key GroupKey) []string {
	return mapValues(rows, func(r GroupRow) string {
		if key == GroupByCount {
			return strings.TrimSpace(r.Vehicles)
		}
		return lower(r.GroupName)
	})
}

// GroupValues normalizes fleet group api records for comparison
func GroupValues(recs []Group, key GroupKey) []string {
	return mapValues(recs, func(r Group) string {
		if key == GroupByCount {
			return strconv.Itoa(r.Count)
		}
		return lower(r.GroupName)
	})
}

// VehicleRowValues normalizes vehicle rows for comparison, now anchors "expires in N days" texts
func VehicleRowValues(rows []VehicleRow, key VehicleKey, now time.Time) []string {
	return mapValues(rows, func(r VehicleRow) string {
		switch key {
		case VehicleByPlate:
			return lower(r.PlateNo)
		case VehicleByAssignee:
			return lower(firstNonEmpty(r.AssignedTo, unassigned))
		case VehicleByPolicyExpiry:
			return ParseUIDate(r.PolicyExpiry, now)
		case VehicleByRegistrationExpiry:
			return ParseUIDate(r.RegistrationExpiry, now)
		default:
			return ""
		}
	})
}

// VehicleValues normalizes vehicle api records for comparison
func VehicleValues(recs []Vehicle, key VehicleKey) []string {
	return mapValues(recs, func(r Vehicle) string {
		switch key {
		case VehicleByPlate:
			return lower(firstNonEmpty(r.PlateNo, r.LicensePlate))
		case VehicleByAssignee:
			driver := ""
			if r.Driver != nil {
				driver = r.Driver.Name
			}
			return lower(firstNonEmpty(driver, r.AssignedTo, unassigned))
		case VehicleByPolicyExpiry:
			return apiDate(r.PolicyExpiryDate)
		case VehicleByRegistrationExpiry:
			return apiDate(r.RegistrationExpiryDate)
		default:
			return ""
		}
	})
}

// CustomerRowValues normalizes customer rows for comparison
func CustomerRowValues(rows []CustomerRow, key CustomerKey) []string {
	return mapValues(rows, func(r CustomerRow) string {
		switch key {
		case CustomerByName:
			return lower(r.CustomerName)
		case CustomerByAdmin:
			return lower(r.AdminName)
		default:
			return ""
		}
	})
}

// CustomerValues normalizes organization api records for comparison
func CustomerValues(recs []Organization, key CustomerKey) []string {
	return mapValues(recs, func(r Organization) string {
		switch key {
		case CustomerByName:
			return lower(r.CompanyName)
		case CustomerByAdmin:
			if r.OrgAdmin == nil {
				return ""
			}
			return lower(r.OrgAdmin.Name)
		default:
			return ""
		}
	})
}

// RouteCardValues normalizes route cards for comparison
func RouteCardValues(cards []RouteCard, key RouteKey) []string {
	return mapValues(cards, func(c RouteCard) string {
		switch key {
		case RouteNewest, RouteOldest:
			return lower(c.Name)
		case RouteShortest, RouteLongest:
			return formatKm(ParseDistanceKm(c.Stats))
		case RouteFewestStops, RouteMostStops:
			return strconv.Itoa(ParsePoints(c.Points))
		default:
			return ""
		}
	})
}

// RouteValues normalizes route api records for comparison
func RouteValues(recs []Route, key RouteKey) []string {
	return mapValues(recs, func(r Route) string {
		switch key {
		case RouteNewest, RouteOldest:
			return lower(r.Name)
		case RouteShortest, RouteLongest:
			return formatKm(math.Round(r.Distance/1000*100) / 100)
		case RouteFewestStops, RouteMostStops:
			return strconv.Itoa(r.NumberOfStops)
		default:
			return ""
		}
	})
}

// ParseDistanceKm extracts "12.5 Km" from a route card stats line, 0 if absent
func ParseDistanceKm(s string) float64 {
	m := reDistanceKm.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// ParsePoints extracts "4 points" from a route card badge, 0 if absent
func ParsePoints(s string) int {
	m := rePoints.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}

// ParseUIDate converts rendered dates to YYYY-MM-DD. "Expires in N days" counts from now,
// D/M/YYYY is reordered and other common layouts are parsed. Unknown texts give an empty string.
func ParseUIDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(s), "expires in") {
		days := 0
		if d := reDigits.FindString(s); d != "" {
			days, _ = strconv.Atoi(d)
		}
		return now.AddDate(0, 0, days).Format(isoDate)
	}
	if m := reDMY.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}
	for _, layout := range []string{time.RFC3339, isoDate, "Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "02 Jan 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(isoDate)
		}
	}
	return ""
}

// apiDate reduces api timestamps to YYYY-MM-DD in utc
func apiDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", isoDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(isoDate)
		}
	}
	return ""
}

// matchByIndex requires every ui value to equal the api value at the same position
func matchByIndex(what string, ui, api []string) error {
	log.Printf("[DEBUG] %s ui values: %v", what, head(ui, 10))
	log.Printf("[DEBUG] %s api values: %v", what, head(api, 10))
	for i, v := range ui {
		if i >= len(api) {
			return fmt.Errorf("%s row %d %q has no api counterpart (%d results): %w", what, i, v, len(api), ErrMismatch)
		}
		if v != api[i] {
			log.Printf("[WARN] %s ui and api mismatch, ui: %v, api: %v", what, head(ui, 10), head(api, 10))
			return fmt.Errorf("%s row %d: ui %q, api %q: %w", what, i, v, api[i], ErrMismatch)
		}
	}
	return nil
}

func mapValues[T any](items []T, fn func(T) string) []string {
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = fn(it)
	}
	return res
}

func formatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func head(vals []string, n int) []string {
	if len(vals) <= n {
		return vals
	}
	return vals[:n]
}
