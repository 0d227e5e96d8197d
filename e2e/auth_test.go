//go:build e2e

package e2e

import (
	"strconv"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/fleetcheck/app/config"
	"github.com/umputun/fleetcheck/app/pages"
)

func TestAuth(t *testing.T) {
	t.Run("login with valid credentials", func(t *testing.T) {
		app := signIn(t)
		assert.True(t, app.Header.IsLoggedIn())
	})

	t.Run("login with wrong password", func(t *testing.T) {
		app, page := newApp(t)
		require.NoError(t, app.Login.OpenAndSignIn(config.Credentials{Email: profile.User.Email, Password: "wrong-" + strconv.Itoa(time.Now().Nanosecond())}))
		err := page.Locator(`[role="alert"]`).First().WaitFor(playwright.LocatorWaitForOptions{
			State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10000)})
		require.NoError(t, err, "error message should be shown")
		visible, err := page.Locator(`input[name="email"]`).IsVisible()
		require.NoError(t, err)
		assert.True(t, visible, "still on the login form")
	})

	t.Run("logout", func(t *testing.T) {
		app := signIn(t)
		require.NoError(t, app.Header.Logout())
	})

	t.Run("protected screen redirects to login", func(t *testing.T) {
		_, page := newApp(t)
		_, err := page.Goto(profile.URL(pages.VehiclesSection.Path))
		require.NoError(t, err)
		err = page.Locator(`input[name="email"]`).WaitFor(playwright.LocatorWaitForOptions{
			State: playwright.WaitForSelectorStateVisible, Timeout: playwright.Float(10000)})
		require.NoError(t, err)
	})
}

func TestProfile(t *testing.T) {
	t.Run("open my profile from the avatar menu", func(t *testing.T) {
		app := signIn(t)
		require.NoError(t, app.Header.OpenProfile())
		title, err := app.Profile.Title()
		require.NoError(t, err)
		assert.Equal(t, "My Profile", title)
	})

	t.Run("edit personal information", func(t *testing.T) {
		skipOnSandbox(t)
		app := signIn(t)
		require.NoError(t, app.Header.OpenProfile())
		info, err := app.Profile.PersonalInfo()
		require.NoError(t, err)
		require.NoError(t, app.Profile.EditPersonalInfo(info.Name, "+9665"+strconv.FormatInt(time.Now().Unix()%100000000, 10), ""))
		require.NoError(t, app.Profile.SavePersonalInfo())
	})

	t.Run("name is required", func(t *testing.T) {
		skipOnSandbox(t)
		app := signIn(t)
		require.NoError(t, app.Header.OpenProfile())
		require.NoError(t, app.Profile.OpenEditPersonalInfo())
		require.NoError(t, app.Profile.ClearName())
		assert.True(t, app.Profile.SaveDisabled(), "save changes should be disabled")
	})

	t.Run("new password can't repeat the current one", func(t *testing.T) {
		skipOnSandbox(t)
		app := signIn(t)
		require.NoError(t, app.Header.OpenProfile())
		require.NoError(t, app.Profile.OpenChangePassword())
		pass := profile.User.Password
		require.NoError(t, app.Profile.FillPassword(pass, pass, pass))
		_, _ = app.Profile.SavePassword()
		require.NoError(t, app.Profile.SamePasswordErrors())
	})
}

func TestEmptyState(t *testing.T) {
	sections := []pages.Section{pages.VehiclesSection, pages.DriversSection, pages.DevicesSection, pages.FleetGroupsSection}
	for _, sec := range sections {
		t.Run(sec.Label, func(t *testing.T) {
			app := openSection(t, sec)
			if sandboxed {
				// seeded sandbox lists are never empty, search for nothing instead
				require.NoError(t, app.Vehicles.Search("no-such-record-"+strconv.FormatInt(time.Now().UnixNano(), 36)))
			}
			msg, err := app.EmptyState.Message()
			require.NoError(t, err)
			assert.Regexp(t, `(?i)^no .*found$`, msg)
		})
	}
}
