//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/fleetcheck/app/pages"
)

// openMaintenance opens the service log form, the screen is served only by the sandbox
func openMaintenance(t *testing.T) *pages.Maintenance {
	t.Helper()
	if !sandboxed {
		t.Skip("maintenance form is served only by the sandbox")
	}
	app := openSection(t, pages.MaintenanceSection)
	require.NoError(t, app.Maintenance.Add())
	return app.Maintenance
}

// writeFiles makes small files to upload and returns their paths
func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	res := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("fleetcheck "+n), 0o600))
		res = append(res, p)
	}
	return res
}

func TestMaintenance(t *testing.T) {
	t.Run("add a service picking vehicle and type from dropdowns", func(t *testing.T) {
		m := openMaintenance(t)
		data := pages.NewServiceData(time.Now())

		types, err := m.ServiceTypes()
		require.NoError(t, err)
		assert.Equal(t, []string{"Oil Change", "Tire Rotation", "Brake Inspection", "Battery Replacement", "Engine Tune-Up"}, types)
		assert.True(t, m.HasVehicleOption(data.Vehicle))
		assert.False(t, m.HasVehicleOption("ZZZ-0000"))

		require.NoError(t, m.FillForm(data))
		vehicle, err := m.Selected("Vehicle")
		require.NoError(t, err)
		assert.Equal(t, data.Vehicle, vehicle)
		serviceType, err := m.Selected("Service Type")
		require.NoError(t, err)
		assert.Equal(t, data.ServiceType, serviceType)

		recs, err := m.Submit()
		require.NoError(t, err)
		rec, err := pages.FindService(recs, data.Workshop)
		require.NoError(t, err)
		assert.Equal(t, data.Vehicle, rec.Vehicle)
		assert.Equal(t, data.ServiceType, rec.ServiceType)
		assert.Equal(t, data.Notes, rec.Notes)
		require.NoError(t, m.Toast("Service record added successfully"))
		assert.True(t, m.IsListed(data.Workshop), "new service listed")
	})

	t.Run("add a service with a type picked by typing", func(t *testing.T) {
		m := openMaintenance(t)
		data := pages.NewServiceData(time.Now())
		data.ServiceType = ""
		require.NoError(t, m.FillForm(data))
		require.NoError(t, m.TypeServiceType("Tire Rotation"))

		recs, err := m.Submit()
		require.NoError(t, err)
		rec, err := pages.FindService(recs, data.Workshop)
		require.NoError(t, err)
		assert.Equal(t, "Tire Rotation", rec.ServiceType)
	})

	t.Run("add a service with dates in other months", func(t *testing.T) {
		m := openMaintenance(t)
		now := time.Now()
		data := pages.NewServiceData(now)
		data.ServiceDate = now.AddDate(0, -2, 0).Format("2006-01-02")
		data.NextServiceDate = now.AddDate(0, 4, 0).Format("2006-01-02")
		require.NoError(t, m.FillForm(data))

		shown, err := m.SelectedDate("Service Date")
		require.NoError(t, err)
		assert.Equal(t, data.ServiceDate, shown)
		shown, err = m.SelectedDate("Next Service Date")
		require.NoError(t, err)
		assert.Equal(t, data.NextServiceDate, shown)

		recs, err := m.Submit()
		require.NoError(t, err)
		rec, err := pages.FindService(recs, data.Workshop)
		require.NoError(t, err)
		assert.Equal(t, data.ServiceDate, rec.ServiceDate)
		assert.Equal(t, data.NextServiceDate, rec.NextServiceDate)
	})

	t.Run("add a service with an invoice and more files", func(t *testing.T) {
		m := openMaintenance(t)
		data := pages.NewServiceData(time.Now())
		files := writeFiles(t, "invoice.pdf", "front.jpg", "rear.jpg", "report.txt")
		data.Invoice = files[0]
		data.Documents = files[1:]
		require.NoError(t, m.FillForm(data))

		recs, err := m.Submit()
		require.NoError(t, err)
		rec, err := pages.FindService(recs, data.Workshop)
		require.NoError(t, err)
		assert.Equal(t, "invoice.pdf", rec.Invoice)
		assert.Equal(t, []string{"front.jpg", "rear.jpg", "report.txt"}, rec.Documents)
	})

	t.Run("required fields", func(t *testing.T) {
		m := openMaintenance(t)
		require.NoError(t, m.Save())
		require.NoError(t, m.RequiredErrors())
	})
}
