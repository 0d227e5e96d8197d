package pages

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/fleetcheck/app/ui"
)

func TestNewVehicleData(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	d := NewVehicleData(now)
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	assert.Equal(t, "AT"+ts[len(ts)-8:], d.PlateNo)
	assert.Regexp(t, `^VIN`, d.VIN)
	year, err := strconv.Atoi(d.Year)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, year, 2018)
	assert.LessOrEqual(t, year, 2026)
	assert.Equal(t, "2027-03-10", d.PolicyExpiry)
	assert.Equal(t, "2027-03-10", d.RegistrationExpiry)
}

func TestParseVehicleRow(t *testing.T) {
	row := parseVehicleRow([]string{"1", "ABC-123\nCorolla", "John Doe", "Toyota", "SUV", "Active", "POL-1",
		"Expires in 5 days", "REG-1", "1/4/2027", ""})
	assert.Equal(t, ui.VehicleRow{PlateNo: "abc-123", AssignedTo: "John Doe", Status: "Active",
		InsurancePolicyNumber: "POL-1", PolicyExpiry: "Expires in 5 days", RegistrationNumber: "REG-1",
		RegistrationExpiry: "1/4/2027"}, row)
	assert.Equal(t, ui.VehicleRow{}, parseVehicleRow(nil))
}

func TestNewDriverData(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	d := NewDriverData(now)
	assert.Contains(t, d.Name, "Auto Driver ")
	assert.Regexp(t, `^driver[0-9a-z]+@example\.com$`, d.Email)
	assert.Equal(t, "2025-03-10", d.LicenseIssue)
	assert.Equal(t, "2028-03-10", d.LicenseExpiry)
}

func TestScoreInRange(t *testing.T) {
	tbl := []struct {
		rng   string
		score float64
		res   bool
	}{
		{"80-100", 80, true},
		{"80-100", 100, true},
		{"80-100", 79.9, false},
		{" 0 - 50 ", 25, true},
		{"90+", 95, true},
		{"90+", 89, false},
		{"bad", 50, false},
		{"a-b", 50, false},
	}
	for i, tt := range tbl {
		assert.Equal(t, tt.res, ScoreInRange(tt.rng, tt.score), "case #%d %s %v", i, tt.rng, tt.score)
	}
}

func TestDriverFilterMatches(t *testing.T) {
	rows := []ui.DriverRow{
		parseDriverRow([]string{"1", "Ann", "ABC-1", "Yes", "85", "Authorized"}),
		parseDriverRow([]string{"2", "Bob", "", "No", "40"}),
		parseDriverRow([]string{"3", "Cid", "Unassigned", "no", "-"}),
	}
	assert.Equal(t, "-", rows[1].Vehicle)
	assert.True(t, rows[0].IsPrimaryDriver)

	tbl := []struct {
		f    DriverFilter
		want []bool
	}{
		{DriverFilter{}, []bool{true, true, true}},
		{DriverFilter{VehicleAssigned: "Yes"}, []bool{true, false, false}},
		{DriverFilter{VehicleAssigned: "No"}, []bool{false, true, true}},
		{DriverFilter{PrimaryDriver: "Yes"}, []bool{true, false, false}},
		{DriverFilter{BehaviourScore: "80-100"}, []bool{true, false, false}},
		{DriverFilter{PrimaryDriver: "No", BehaviourScore: "0-50"}, []bool{false, true, false}},
	}
	for i, tt := range tbl {
		for j, r := range rows {
			assert.Equal(t, tt.want[j], tt.f.Matches(r), "filter #%d row %d", i, j)
		}
	}
}

func TestParseDeviceRow(t *testing.T) {
	tbl := []struct {
		cells []string
		res   ui.DeviceRow
	}{
		{[]string{"12", "Teltonika", "FMB920", "356307042441013", "Online"},
			ui.DeviceRow{ID: "12", Manufacturer: "Teltonika", Model: "FMB920", IMEI: "356307042441013", Status: "Online"}},
		{[]string{"13", "Queclink", "GV300", "861585040000000", "ABC-1", "offline since 2d"},
			ui.DeviceRow{ID: "13", Manufacturer: "Queclink", Model: "GV300", IMEI: "861585040000000", Status: "Offline"}},
		{[]string{"14", "Concox"}, ui.DeviceRow{ID: "14", Manufacturer: "Concox"}},
	}
	for i, tt := range tbl {
		assert.Equal(t, tt.res, parseDeviceRow(tt.cells), "case #%d", i)
	}
}

func TestDeviceFilterMatches(t *testing.T) {
	r := ui.DeviceRow{Manufacturer: "Teltonika ", Model: "FMB920", Status: "Online"}
	assert.True(t, DeviceFilter{}.Matches(r))
	assert.True(t, DeviceFilter{Manufacturer: "teltonika", Status: "online"}.Matches(r))
	assert.True(t, DeviceFilter{Assigned: "Yes"}.Matches(r), "assignment is not rendered and not checked")
	assert.False(t, DeviceFilter{Model: "GV300"}.Matches(r))
	assert.False(t, DeviceFilter{Status: "Offline"}.Matches(r))
}

func TestRouteSortParam(t *testing.T) {
	assert.Equal(t, "-Id", RouteSortParam(ui.RouteNewest))
	assert.Equal(t, "Id", RouteSortParam(ui.RouteOldest))
	assert.Equal(t, "distance", RouteSortParam(ui.RouteShortest))
	assert.Equal(t, "-distance", RouteSortParam(ui.RouteLongest))
	assert.Equal(t, "-numberOfStops", RouteSortParam(ui.RouteMostStops))
	assert.Equal(t, "numberOfStops", RouteSortParam(ui.RouteFewestStops))
	assert.Equal(t, "id", RouteSortParam("Alphabetical"))
}

func TestRouteBuckets(t *testing.T) {
	assert.True(t, StopsInBucket("2-5", 2))
	assert.True(t, StopsInBucket("2-5", 5))
	assert.False(t, StopsInBucket("2-5", 6))
	assert.True(t, StopsInBucket("6-10", 10))
	assert.False(t, StopsInBucket("10+", 10))
	assert.True(t, StopsInBucket("10+", 11))
	assert.False(t, StopsInBucket("any", 3))

	assert.True(t, DistanceInBucket("<50 km", 49.9))
	assert.False(t, DistanceInBucket("<50 km", 50))
	assert.True(t, DistanceInBucket("50-200 km", 200))
	assert.True(t, DistanceInBucket("200+ km", 200.5))
	assert.False(t, DistanceInBucket("200+ km", 200))

	assert.True(t, DurationInBucket("<1h", 0))
	assert.True(t, DurationInBucket("1-4h", 4))
	assert.True(t, DurationInBucket("4-8h", 4), "4h sits in both middle buckets")
	assert.False(t, DurationInBucket("8h+", 8))
	assert.True(t, DurationInBucket("8h+", 9))
	assert.False(t, DurationInBucket("", 3))
}

func TestParseHours(t *testing.T) {
	assert.Equal(t, 12, ParseHours("125.4 Km • 12hr 5m (est)"))
	assert.Equal(t, 0, ParseHours("3.2 Km • 0hr 45m"))
	assert.Equal(t, 0, ParseHours("3.2 Km"))
}

func TestRouteFilterMatches(t *testing.T) {
	c := ui.RouteCard{Name: "Airport", Stats: "62.5 Km • 1hr 20m (est)", Points: "4 points", CreatedBy: "Me"}
	assert.True(t, RouteFilter{}.Matches(c))
	assert.True(t, RouteFilter{Stops: "2-5", Distance: "50-200 km", Duration: "1-4h", CreatedBy: "Me"}.Matches(c))
	assert.False(t, RouteFilter{Stops: "6-10"}.Matches(c))
	assert.False(t, RouteFilter{Distance: "<50 km"}.Matches(c))
	assert.False(t, RouteFilter{Duration: "<1h"}.Matches(c))
	assert.False(t, RouteFilter{CreatedBy: "Others"}.Matches(c))
}

func TestDayButton(t *testing.T) {
	tbl := []struct {
		day    time.Weekday
		letter string
		nth    int
	}{
		{time.Monday, "M", 0}, {time.Tuesday, "T", 0}, {time.Wednesday, "W", 0}, {time.Thursday, "T", 1},
		{time.Friday, "F", 0}, {time.Saturday, "S", 0}, {time.Sunday, "S", 1},
	}
	for _, tt := range tbl {
		letter, nth := DayButton(tt.day)
		assert.Equal(t, tt.letter, letter, tt.day.String())
		assert.Equal(t, tt.nth, nth, tt.day.String())
	}
}

func TestTripFilter(t *testing.T) {
	trip := ui.Schedule{
		ID:            5,
		Title:         "Morning run",
		Vehicle:       &ui.ScheduleVehicle{PlateNo: "SSA-9835", Group: &ui.Group{GroupName: "Test Name"}},
		PrimaryDriver: &ui.Person{Name: "awd"},
		Route:         &ui.ScheduleRoute{Name: "Route 66"},
	}
	bare := ui.Schedule{ID: 6}

	tbl := []struct {
		f         TripFilter
		trip, bar bool
	}{
		{TripFilter{}, true, true},
		{TripFilter{FleetGroup: "Test Name"}, true, false},
		{TripFilter{FleetGroup: "Other"}, false, false},
		{TripFilter{Vehicle: "SSA-9835"}, true, false},
		{TripFilter{Driver: "awd"}, true, false},
		{TripFilter{Route: "Route"}, true, false},
		{TripFilter{Route: "Route", Driver: "someone"}, false, false},
	}
	for i, tt := range tbl {
		assert.Equal(t, tt.trip, tt.f.Matches(trip), "case #%d", i)
		assert.Equal(t, tt.bar, tt.f.Matches(bare), "case #%d bare", i)
	}

	require.NoError(t, TripFilter{Vehicle: "SSA-9835"}.VerifyTrips([]ui.Schedule{trip}))
	require.NoError(t, TripFilter{Vehicle: "nope"}.VerifyTrips(nil), "empty calendar matches any filter")
	err := TripFilter{Vehicle: "SSA-9835"}.VerifyTrips([]ui.Schedule{trip, bare})
	require.ErrorIs(t, err, ui.ErrMismatch)
}

func TestGroupFilterMatches(t *testing.T) {
	r := parseGroupRow([]string{"1", "North", "Test User 01", "John Doe Testing", "7"})
	assert.Equal(t, ui.GroupRow{GroupName: "North", Manager: "Test User 01", CreatedBy: "John Doe Testing", Vehicles: "7"}, r)
	assert.True(t, GroupFilter{Manager: "test user 01", CreatedBy: "John Doe", Vehicles: "1-10"}.Matches(r))
	assert.False(t, GroupFilter{Vehicles: "10+"}.Matches(r))
	assert.False(t, GroupFilter{Manager: "Someone"}.Matches(r))
	assert.False(t, GroupFilter{Vehicles: "1-10"}.Matches(ui.GroupRow{Vehicles: "-"}))
}

func TestNewCustomerData(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	d := NewCustomerData(now)
	assert.Regexp(t, `^Customer\d{6}[0-9a-z]{4}$`, d.Name)
	assert.Regexp(t, `^admin\d{5}@example\.com$`, d.AdminEmail)
	assert.Regexp(t, `^050\d{7}$`, d.AdminPhone)
	assert.GreaterOrEqual(t, d.MaxUsers, 50)
	assert.Less(t, d.MaxUsers, 250)
	assert.Equal(t, []string{"Dashboard"}, d.Features)
	assert.Equal(t, "1A73E8", HexDigits(d.Branding.PrimaryColor))
}

func TestNewUserData(t *testing.T) {
	d := NewUserData(time.UnixMilli(1767225600000))
	assert.Equal(t, "AutomationTest_1767225600000", d.FullName)
	assert.Equal(t, "testdriver1767225600000@automation.test", d.Email)
	assert.Equal(t, RoleFleetAdmin, d.Role)
}

func TestNewServiceData(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
	d := NewServiceData(now)
	assert.Equal(t, "2026-03-10", d.ServiceDate)
	assert.Regexp(t, `^Workshop W[0-9A-Z]+$`, d.Workshop)
	assert.NotEqual(t, d.Workshop, NewServiceData(now).Workshop, "random suffix")
	assert.Empty(t, d.NextServiceDate)
	assert.Empty(t, d.Documents)
}

func TestFindService(t *testing.T) {
	recs := []ui.ServiceRecord{{ID: 1, Workshop: "Al Noor Motors"}, {ID: 4, Workshop: "Workshop W1"}}
	rec, err := FindService(recs, "Workshop W1")
	require.NoError(t, err)
	assert.Equal(t, 4, rec.ID)

	_, err = FindService(recs, "Workshop W2")
	require.ErrorIs(t, err, ui.ErrNotFound)
	assert.Contains(t, err.Error(), `service at "Workshop W2" in 2 records`)
}
