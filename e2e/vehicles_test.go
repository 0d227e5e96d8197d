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

func TestVehicles(t *testing.T) {
	t.Run("add, view, edit and delete a vehicle", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.VehiclesSection)
		v := app.Vehicles
		data := pages.NewVehicleData(time.Now())

		require.NoError(t, v.Add())
		require.NoError(t, v.FillForm(data))
		require.NoError(t, v.Submit())
		_, err := v.Notification()
		require.NoError(t, err)

		require.NoError(t, v.Search(data.PlateNo))
		require.True(t, v.IsListed(data.PlateNo), "new vehicle listed")
		require.NoError(t, v.View(data.PlateNo))
		require.NoError(t, v.VerifyDetails(data.PlateNo, data.VIN))

		require.NoError(t, v.Edit(data.PlateNo))
		require.NoError(t, v.UpdateModel("Automation Model X"))
		require.NoError(t, v.SaveEdit())
		_, err = v.Notification()
		require.NoError(t, err)

		require.NoError(t, v.Delete(data.PlateNo))
		require.NoError(t, v.Search(data.PlateNo))
		assert.False(t, v.IsListed(data.PlateNo), "deleted vehicle gone")
	})

	t.Run("required fields", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.VehiclesSection)
		require.NoError(t, app.Vehicles.Add())
		require.NoError(t, app.Vehicles.Submit())
		require.NoError(t, app.Vehicles.RequiredErrors())
	})

	t.Run("search by vin", func(t *testing.T) {
		app := openSection(t, pages.VehiclesSection)
		v := app.Vehicles
		if !sandboxed {
			// a random vin matches nothing on any deployment
			require.NoError(t, v.Search(pages.MakeVIN()))
			msg, err := app.EmptyState.Message()
			require.NoError(t, err)
			assert.NotEmpty(t, msg)
			return
		}
		require.NoError(t, v.Search("1FLTXK2DEG0D9PCF4"))
		assert.True(t, v.IsListed("AKP-1000"))
		assert.False(t, v.IsListed("BNW-1137"))
	})

	t.Run("sort matches the api", func(t *testing.T) {
		app := openSection(t, pages.VehiclesSection)
		v := app.Vehicles
		for _, option := range []string{"Vehicle Plate No. (A-Z)", "Vehicle Plate No. (Z-A)", "Assigned To (A-Z)"} {
			recs, key, err := v.SortBy(option)
			require.NoError(t, err, option)
			assert.True(t, v.Sort.IsApplied(option), "sort indicator shows %s", option)

			rows, err := v.Rows()
			require.NoError(t, err)
			require.NoError(t, v.API.AssertVehicles(rows, recs, key), option)
			if key != ui.VehicleByPlate {
				continue // empty assignees are rendered as placeholders
			}
			ok, err := v.Sort.VerifyOrder(option, pages.VehicleSortColumns[key])
			require.NoError(t, err)
			assert.True(t, ok, "rows ordered by %s", option)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		app := openSection(t, pages.VehiclesSection)
		v := app.Vehicles
		require.NoError(t, v.Filter.Open(""))
		require.NoError(t, v.Filter.SelectCheckbox("Status", "In Maintenance"))
		recs, err := v.ApplyFilters()
		require.NoError(t, err)
		if sandboxed {
			assert.Len(t, recs, 3)
		}
		ok, err := v.VerifyFiltered("In Maintenance")
		require.NoError(t, err)
		assert.True(t, ok, "rows show the filtered status")
		assert.True(t, v.Filter.HasActive(), "filter indicator shows active filters")
		assert.Equal(t, 1, v.Filter.ActiveCount())

		require.NoError(t, v.Filter.ResetAll())
		assert.False(t, v.Filter.HasActive(), "no active filters after clear all")
		assert.True(t, v.Filter.IsReset("Status", false))
	})
}
