//go:build e2e

package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/fleetcheck/app/pages"
	"github.com/umputun/fleetcheck/app/ui"
)

// todayTrip is the seeded sandbox trip of the current day
var todayTrip = pages.TripData{Vehicle: "DTQ-1411", PrimaryDriver: "Dmitri Volkov", Route: "Coastal Highway"}

func TestScheduling(t *testing.T) {
	t.Run("schedule a new trip", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.SchedulingSection)
		s := app.Scheduling
		now := time.Now()
		trip := pages.TripData{
			FleetGroup: "Test Name", Vehicle: "SSA-9835", UsePrimaryDriver: true, PrimaryDriver: "awd", Route: "Route",
			StartDate: now.Format(time.DateOnly), StartTime: "10 : 00-AM",
			EndDate: now.AddDate(0, 0, 1).Format(time.DateOnly), EndTime: "11 : 00-AM",
			Recurrence: "Does not repeat",
		}
		require.NoError(t, s.NewTrip())
		require.NoError(t, s.FillTrip(trip))
		require.NoError(t, s.Submit())
		require.NoError(t, s.Toast("Trip scheduled successfully"))
		assert.True(t, s.HasTrip(trip))
	})

	t.Run("required fields", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.SchedulingSection)
		require.NoError(t, app.Scheduling.NewTrip())
		require.NoError(t, app.Scheduling.Submit())
		require.NoError(t, app.Scheduling.RequiredErrors())
	})

	t.Run("calendar views request their range", func(t *testing.T) {
		app := openSection(t, pages.SchedulingSection)
		s := app.Scheduling
		month, err := s.SwitchView("Month")
		require.NoError(t, err)
		day, err := s.SwitchView("Day")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(day), len(month), "day is a part of the month")
		if sandboxed {
			assert.True(t, hasVehicle(month, todayTrip.Vehicle))
			assert.True(t, hasVehicle(day, todayTrip.Vehicle))
		}
	})

	t.Run("trip details", func(t *testing.T) {
		if !sandboxed {
			t.Skip("trips of the day are known only for the sandbox seed")
		}
		app := openSection(t, pages.SchedulingSection)
		require.True(t, app.Scheduling.HasTrip(todayTrip))
		require.NoError(t, app.Scheduling.OpenTrip(todayTrip))
		require.NoError(t, app.Scheduling.VerifyTripDetails(todayTrip))
	})

	filters := []struct {
		label string
		value string
		f     pages.TripFilter
	}{
		{"Fleet Group", "North Depot", pages.TripFilter{FleetGroup: "North Depot"}},
		{"Vehicle", "BNW-1137", pages.TripFilter{Vehicle: "BNW-1137"}},
		{"Route", "Riyadh Downtown Loop", pages.TripFilter{Route: "Riyadh Downtown Loop"}},
	}
	for _, tt := range filters {
		t.Run("filter by "+tt.label, func(t *testing.T) {
			if !sandboxed {
				t.Skip("filter values are known only for the sandbox seed")
			}
			app := openSection(t, pages.SchedulingSection)
			s := app.Scheduling
			_, err := s.SwitchView("Month")
			require.NoError(t, err)
			trips, err := s.ApplyFilter(tt.label, tt.value)
			require.NoError(t, err)
			require.NoError(t, tt.f.VerifyTrips(trips))
		})
	}

	t.Run("remove driver filter shows all trips", func(t *testing.T) {
		if !sandboxed {
			t.Skip("drivers are known only for the sandbox seed")
		}
		app := openSection(t, pages.SchedulingSection)
		s := app.Scheduling
		all, err := s.SwitchView("Month")
		require.NoError(t, err)

		filtered, err := s.ApplyFilter("Driver", todayTrip.PrimaryDriver)
		require.NoError(t, err)
		require.NoError(t, pages.TripFilter{Driver: todayTrip.PrimaryDriver}.VerifyTrips(filtered))
		assert.Less(t, len(filtered), len(all))

		restored, err := s.RemoveDriverFilter(todayTrip.PrimaryDriver)
		require.NoError(t, err)
		assert.Len(t, restored, len(all))
	})

	// runs last, the sandbox trip is gone afterwards
	t.Run("delete a trip", func(t *testing.T) {
		if !sandboxed {
			t.Skip("deletes a seeded sandbox trip")
		}
		app := openSection(t, pages.SchedulingSection)
		s := app.Scheduling
		require.NoError(t, s.OpenTrip(todayTrip))
		require.NoError(t, s.DeleteTrip())
		require.NoError(t, s.Toast("Trip deleted successfully"))
		assert.False(t, s.HasTrip(todayTrip), "trip is no longer in the calendar")
	})
}

func hasVehicle(trips []ui.Schedule, plate string) bool {
	for _, t := range trips {
		if t.Vehicle != nil && t.Vehicle.PlateNo == plate {
			return true
		}
	}
	return false
}
