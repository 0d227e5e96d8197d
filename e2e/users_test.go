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

func TestUsersAndRoles(t *testing.T) {
	t.Run("invite, edit, resend and delete a user", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.UsersAndRolesSection)
		u := app.Users
		data := pages.NewUserData(time.Now())

		require.NoError(t, u.Invite())
		require.NoError(t, u.FillForm(data))
		require.NoError(t, u.Submit())
		_, err := u.Notification()
		require.NoError(t, err)
		require.NoError(t, u.SelectTab("Invites"))
		require.NoError(t, u.Search(data.FullName))
		require.True(t, u.IsListed(data.FullName))

		renamed := data.FullName + "_upd"
		require.NoError(t, u.Edit(data.FullName))
		require.NoError(t, u.Rename(renamed))
		require.NoError(t, u.Submit())
		require.NoError(t, u.Search(renamed))
		require.True(t, u.IsListed(renamed), "update visible in the table")

		require.NoError(t, u.ResendInvite(renamed))
		_, err = u.Notification()
		require.NoError(t, err)

		require.NoError(t, u.Delete(renamed))
		require.NoError(t, u.Search(renamed))
		assert.True(t, u.NoUsers())
	})

	t.Run("send invite disabled for empty form", func(t *testing.T) {
		skipOnSandbox(t)
		app := openSection(t, pages.UsersAndRolesSection)
		require.NoError(t, app.Users.Invite())
		assert.True(t, app.Users.SendInviteDisabled())
	})

	t.Run("users tab toolbar", func(t *testing.T) {
		app := openSection(t, pages.UsersAndRolesSection)
		require.NoError(t, app.Users.SelectTab("Users"))
		require.NoError(t, app.Users.ToolbarVisible())
	})

	t.Run("search by name", func(t *testing.T) {
		app := openSection(t, pages.UsersAndRolesSection)
		u := app.Users
		require.NoError(t, u.SelectTab("Users"))
		if !sandboxed {
			require.NoError(t, u.Search(profile.User.Email))
			assert.True(t, u.IsListed(profile.User.Email))
			return
		}
		require.NoError(t, u.Search("haddad"))
		assert.True(t, u.IsListed("Omar Haddad"))
		assert.True(t, u.IsListed("Lina Haddad"))
		assert.False(t, u.IsListed("Maya Collins"))
	})

	t.Run("search without match", func(t *testing.T) {
		app := openSection(t, pages.UsersAndRolesSection)
		require.NoError(t, app.Users.Search("no-such-user-"+strconv.FormatInt(time.Now().UnixNano(), 36)))
		assert.True(t, app.Users.NoUsers())
	})

	t.Run("sort options", func(t *testing.T) {
		app := openSection(t, pages.UsersAndRolesSection)
		require.NoError(t, app.Users.Sort.Open())
		opts, err := app.Users.Sort.Options()
		require.NoError(t, err)
		assert.Equal(t, pages.UserSortOptions, opts)

		require.NoError(t, app.Users.Sort.Select("Email (A-Z)"))
		assert.True(t, app.Users.Sort.IsApplied("Email (A-Z)"))
		ok, err := app.Users.Sort.VerifyOrder("Email (A-Z)", 2)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("filter by role and status", func(t *testing.T) {
		app := openSection(t, pages.UsersAndRolesSection)
		u := app.Users
		f := pages.UserFilter{Role: pages.RoleDriver, Status: "Active"}
		require.NoError(t, u.Filter.Open(""))
		require.NoError(t, u.SetFilter(f))
		require.NoError(t, u.Filter.Apply())
		ok, err := u.VerifyFiltered(f)
		require.NoError(t, err)
		assert.True(t, ok, "rows show the role and status")
		assert.Equal(t, 2, u.Filter.ActiveCount())

		require.NoError(t, u.Search("no-such-user-"+strconv.FormatInt(time.Now().UnixNano(), 36)))
		assert.True(t, u.NoUsers())
		assert.True(t, u.ClearFiltersVisible(), "empty state offers to clear filters")
	})
}
