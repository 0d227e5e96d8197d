//go:build e2e

package e2e

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/fleetcheck/app/pages"
	"github.com/umputun/fleetcheck/app/ui"
)

// groupManager is the manager account of the test organization
const groupManager = "Test Name 01"

func TestFleetGroups(t *testing.T) {
	t.Run("create, view, edit and delete a group", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.FleetGroupsSection)
		g := app.FleetGroups
		name := "Auto Group " + strconv.FormatInt(time.Now().UnixMilli(), 36)
		data := pages.GroupData{Name: name, Manager: groupManager}

		require.NoError(t, g.Add())
		require.NoError(t, g.FillForm(data))
		require.NoError(t, g.Submit())
		_, err := g.Notification()
		require.NoError(t, err)

		require.NoError(t, g.Search(name))
		require.True(t, g.IsListed(name))
		require.NoError(t, g.View(name))
		require.NoError(t, g.VerifyDetails(name, data.Manager))

		renamed := name + " upd"
		require.NoError(t, g.Edit(name))
		require.NoError(t, g.Rename(renamed))
		require.NoError(t, g.SaveEdit())
		require.NoError(t, g.Search(renamed))
		require.True(t, g.HasManager(renamed, data.Manager))

		require.NoError(t, g.Delete(renamed))
		require.NoError(t, g.Search(renamed))
		_, err = g.NoResults()
		require.NoError(t, err)
	})

	t.Run("save disabled for empty form", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.FleetGroupsSection)
		require.NoError(t, app.FleetGroups.Add())
		assert.True(t, app.FleetGroups.SaveDisabled())
	})

	t.Run("search without match", func(t *testing.T) {
		app := openSection(t, pages.FleetGroupsSection)
		require.NoError(t, app.FleetGroups.Search("no-such-group-"+strconv.FormatInt(time.Now().UnixNano(), 36)))
		msg, err := app.FleetGroups.NoResults()
		require.NoError(t, err)
		assert.Equal(t, "No results found", msg)
	})

	t.Run("sort matches the api", func(t *testing.T) {
		app := openSection(t, pages.FleetGroupsSection)
		g := app.FleetGroups
		for _, option := range []string{"Group Name (A-Z)", "Group Name (Z-A)", "No. of Vehicles (High-Low)"} {
			recs, key, err := g.SortBy(option)
			require.NoError(t, err, option)
			assert.True(t, g.Sort.IsApplied(option), "sort indicator shows %s", option)
			rows, err := g.Rows()
			require.NoError(t, err)
			require.NoError(t, g.API.AssertGroups(rows, recs, key), option)
			if key != ui.GroupByName {
				continue // counts don't sort as text
			}
			ok, err := g.Sort.VerifyOrder(option, 1)
			require.NoError(t, err)
			assert.True(t, ok, "rows ordered by %s", option)
		}
	})

	t.Run("filter by manager", func(t *testing.T) {
		app := openSection(t, pages.FleetGroupsSection)
		g := app.FleetGroups
		rows, err := g.Rows()
		require.NoError(t, err)
		require.NotEmpty(t, rows)
		f := pages.GroupFilter{Manager: rows[0].Manager}

		require.NoError(t, g.Filter.Open(""))
		require.NoError(t, g.SetFilter(f))
		recs, err := g.ApplyFilters()
		require.NoError(t, err)
		require.NotEmpty(t, recs)
		for _, r := range recs {
			assert.Equal(t, f.Manager, r.Manager)
		}
		ok, err := g.VerifyFiltered(f)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("filter by vehicle count range", func(t *testing.T) {
		app := openSection(t, pages.FleetGroupsSection)
		g := app.FleetGroups
		f := pages.GroupFilter{Vehicles: "6-10"}
		require.NoError(t, g.Filter.Open(""))
		require.NoError(t, g.SetFilter(f))
		recs, err := g.ApplyFilters()
		require.NoError(t, err)
		for _, r := range recs {
			assert.True(t, r.Count >= 6 && r.Count <= 10, "group %q has %d vehicles", r.GroupName, r.Count)
		}
		if sandboxed {
			assert.Len(t, recs, 2)
		}
		ok, err := g.VerifyFiltered(f)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, g.Filter.HasActive())

		require.NoError(t, g.Filter.ResetAll())
		assert.False(t, g.Filter.HasActive())
	})
}
