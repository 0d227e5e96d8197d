//go:build e2e

package e2e

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/fleetcheck/app/pages"
)

func TestDevices(t *testing.T) {
	t.Run("add, edit and delete a device", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.DevicesSection)
		d := app.Devices
		ts := strconv.FormatInt(time.Now().UnixNano(), 10)
		data := pages.DeviceData{Manufacturer: "Teltonika", Model: "FMB920", IMEI: ts[len(ts)-15:],
			UserName: "device" + ts[len(ts)-6:], Password: "Device#" + ts[len(ts)-6:], PhoneNumber: "+9665" + ts[len(ts)-8:]}

		require.NoError(t, d.Add())
		require.NoError(t, d.FillForm(data))
		require.NoError(t, d.Submit())
		_, err := d.Notification()
		require.NoError(t, err)
		require.NoError(t, d.Search(data.IMEI))
		require.True(t, d.IsListed(data.IMEI))

		require.NoError(t, d.Edit(data.IMEI))
		require.NoError(t, d.FillForm(pages.DeviceData{Model: "FMC130", IMEI: data.IMEI, UserName: data.UserName,
			Password: data.Password, PhoneNumber: data.PhoneNumber}))
		require.NoError(t, d.SaveEdit())
		require.True(t, d.IsListed("FMC130"))

		require.NoError(t, d.Delete(data.IMEI))
		require.NoError(t, d.Search(data.IMEI))
		assert.True(t, d.NoMatches(), "deleted device gone")
	})

	t.Run("required fields", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.DevicesSection)
		require.NoError(t, app.Devices.Add())
		assert.True(t, app.Devices.SaveDisabled())
	})

	t.Run("sort matches the api", func(t *testing.T) {
		app := openSection(t, pages.DevicesSection)
		d := app.Devices
		for _, option := range []string{"Model (A-Z)", "Model (Z-A)", "Manufacturer (A-Z)"} {
			recs, key, err := d.SortBy(option)
			require.NoError(t, err, option)
			assert.True(t, d.Sort.IsApplied(option), "sort indicator shows %s", option)
			rows, err := d.Rows()
			require.NoError(t, err)
			require.NoError(t, d.API.AssertDevices(rows, recs, key), option)
			ok, err := d.Sort.VerifyOrder(option, pages.DeviceSortColumns[key])
			require.NoError(t, err)
			assert.True(t, ok, "rows ordered by %s", option)
		}
	})

	t.Run("sort keeps the filter", func(t *testing.T) {
		app := openSection(t, pages.DevicesSection)
		d := app.Devices
		f := pages.DeviceFilter{Status: "Offline"}
		require.NoError(t, d.Filter.Open(""))
		require.NoError(t, d.SetFilter(f))
		_, err := d.ApplyFilters()
		require.NoError(t, err)

		_, _, err = d.SortBy("Model (Z-A)")
		require.NoError(t, err)
		assert.True(t, d.Filter.HasActive(), "filter remains active")
		ok, err := d.VerifyFiltered(f)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("filter by manufacturer and status", func(t *testing.T) {
		app := openSection(t, pages.DevicesSection)
		d := app.Devices
		f := pages.DeviceFilter{Manufacturer: "Teltonika", Status: "Offline"}
		require.NoError(t, d.Filter.Open(""))
		require.NoError(t, d.SetFilter(f))
		recs, err := d.ApplyFilters()
		require.NoError(t, err)
		for _, r := range recs {
			assert.Equal(t, "Teltonika", r.Manufacturer)
			assert.Equal(t, "Offline", r.Status)
		}
		if sandboxed {
			assert.Len(t, recs, 4)
		}
		ok, err := d.VerifyFiltered(f)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, d.Filter.ActiveCount())

		require.NoError(t, d.Filter.ResetAll())
		assert.False(t, d.Filter.HasActive())
		assert.True(t, d.Filter.IsReset("Manufacturer", false))
	})
}
