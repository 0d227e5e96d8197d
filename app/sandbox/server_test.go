package sandbox

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@fleetcheck.local"
	adminPass     = "admin-pass"
	managerEmail  = "manager@fleetcheck.local"
	managerPass   = "manager-pass"
	vehiclesCount = 12
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s, err := New(context.Background(), Config{DBPath: filepath.Join(t.TempDir(), "sandbox.db"), Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, s.routes()
}

// login posts the form and returns the session cookie
func login(t *testing.T, h http.Handler, email, password string) *http.Cookie {
	t.Helper()
	rr := postLogin(h, email, password)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	require.FailNow(t, "no session cookie")
	return nil
}

func postLogin(h http.Handler, email, password string) *httptest.ResponseRecorder {
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// api calls the json api with basic auth of the manager account
func api(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, apiPrefix+path, rd)
	req.SetBasicAuth(managerEmail, managerPass)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) listResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Len(t, res.Results, res.Total)
	return res
}

func TestNew(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NotNil(t, s.store)
	assert.NotNil(t, s.cache)
	assert.Len(t, s.templates, 6)

	counts, err := s.store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vehiclesCount, counts[KindVehicles])

	t.Run("custom seed", func(t *testing.T) {
		seedFile := filepath.Join(t.TempDir(), "seed.yml")
		require.NoError(t, os.WriteFile(seedFile, []byte(testSeed), 0o600))
		s, err := New(context.Background(), Config{SeedFile: seedFile})
		require.NoError(t, err)
		defer s.Close()
		counts, err := s.store.Counts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, counts[KindVehicles])
	})

	t.Run("missing seed", func(t *testing.T) {
		_, err := New(context.Background(), Config{SeedFile: "/no/such/seed.yml"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sandbox initialization failed")
	})
}

func TestServer_Login(t *testing.T) {
	_, h := newTestServer(t)

	rr := get(h, "/login", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Sign in")
	assert.Contains(t, rr.Body.String(), `name="email"`)

	rr = postLogin(h, managerEmail, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email or password")

	rr = postLogin(h, "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Email and password are required")

	cookie := login(t, h, managerEmail, managerPass)
	assert.True(t, cookie.HttpOnly)

	rr = get(h, "/", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Fleet Overview")
	assert.Contains(t, body, `data-account="Maya Collins"`)
	assert.Contains(t, body, `>MC</button>`, "avatar initials")
	assert.NotContains(t, body, `data-href="/customers"`, "admin-only screen hidden")
	assert.Equal(t, AppName, rr.Header().Get("App-Name"))

	// signed-in user skips the form
	rr = get(h, "/login", cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = get(h, "/logout", cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = get(h, "/", cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code, "session ended")
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestServer_AuthRequired(t *testing.T) {
	_, h := newTestServer(t)

	rr := get(h, "/vehicles", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = get(h, apiPrefix+"/vehicles", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")

	rr = get(h, "/vehicles", &http.Cookie{Name: sessionCookie, Value: "stale"})
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = get(h, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "FleetUI")

	rr = get(h, "/ping", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())

	rr = api(t, h, http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"email":"manager@fleetcheck.local","name":"Maya Collins","role":"Fleet Manager"}`, rr.Body.String())
}

func TestServer_Screens(t *testing.T) {
	_, h := newTestServer(t)
	manager := login(t, h, managerEmail, managerPass)
	admin := login(t, h, adminEmail, adminPass)

	for _, sc := range Screens {
		t.Run(sc.Label, func(t *testing.T) {
			rr := get(h, sc.Path, admin)
			require.Equal(t, http.StatusOK, rr.Code)
			body := rr.Body.String()
			assert.Contains(t, body, "<h1>"+html.EscapeString(sc.Title)+"</h1>")
			assert.Contains(t, body, `FleetUI.screen(document.getElementById("screen")`)
			assert.Contains(t, body, `"kind":"`+sc.Kind+`"`)
		})
	}

	rr := get(h, "/customers", manager)
	assert.Equal(t, http.StatusSeeOther, rr.Code, "customers are admin only")
	assert.Equal(t, "/", rr.Header().Get("Location"))

	for _, path := range []string{"/profile", "/company-detail", "/fleet-tracking"} {
		rr := get(h, path, manager)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
	rr = get(h, "/profile", manager)
	assert.Contains(t, rr.Body.String(), "Personal Information")
	assert.Contains(t, rr.Body.String(), "manager@fleetcheck.local")
}

func TestServer_List(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		total int
		check func(t *testing.T, res listResponse)
	}{
		{name: "all vehicles", path: "/vehicles", total: vehiclesCount},
		{name: "devices by status", path: "/devices?sorts=&filters=status==Offline", total: 4},
		{name: "groups by count range", path: "/groups?filters=" + url.QueryEscape("count>=5"), total: 5},
		{name: "groups created by me", path: "/groups?filters=" + url.QueryEscape("createdBy==@me"), total: 4,
			check: func(t *testing.T, res listResponse) {
				for _, r := range res.Results {
					assert.Equal(t, "Maya Collins", r["createdBy"])
				}
			}},
		{name: "my active routes", path: "/routes?filters=" + url.QueryEscape("createdBy==@me,archived!=true"), total: 4},
		{name: "archived routes", path: "/routes?filters=" + url.QueryEscape("archived==true"), total: 1,
			check: func(t *testing.T, res listResponse) {
				assert.Equal(t, "Mall Deliveries", res.Results[0]["name"])
			}},
		{name: "groups sorted by count desc", path: "/groups?sorts=-vehicleCount", total: 8,
			check: func(t *testing.T, res listResponse) {
				assert.Equal(t, "Cold Chain", res.Results[0]["groupName"])
				assert.Equal(t, "Long Haul", res.Results[7]["groupName"])
			}},
		{name: "search groups", path: "/groups?search=depot", total: 2},
		{name: "search without match", path: "/groups?search=zzz", total: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := decodeList(t, api(t, h, http.MethodGet, tt.path, ""))
			assert.Equal(t, tt.total, res.Total)
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}

	rr := api(t, h, http.MethodGet, "/trucks", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api(t, h, http.MethodGet, "/vehicles?filters=status", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_CRUD(t *testing.T) {
	_, h := newTestServer(t)

	// warm the list cache
	assert.Equal(t, 8, decodeList(t, api(t, h, http.MethodGet, "/groups", "")).Total)

	rr := api(t, h, http.MethodPost, "/groups", `{"groupName":"Night Shift","count":1}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, 9, created.ID())
	assert.Equal(t, 9, decodeList(t, api(t, h, http.MethodGet, "/groups", "")).Total, "cache invalidated on create")

	rr = api(t, h, http.MethodPut, "/groups/9", `{"groupName":"Day Shift"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = api(t, h, http.MethodGet, "/groups/9", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Day Shift", got["groupName"])
	assert.InDelta(t, 1, got["count"], 0.001)

	res := decodeList(t, api(t, h, http.MethodGet, "/groups?search=shift", ""))
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Day Shift", res.Results[0]["groupName"])

	rr = api(t, h, http.MethodDelete, "/groups/9", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 8, decodeList(t, api(t, h, http.MethodGet, "/groups", "")).Total, "cache invalidated on delete")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"get missing", http.MethodGet, "/groups/9", "", http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/groups/9", "", http.StatusNotFound},
		{"update missing", http.MethodPut, "/groups/9", `{}`, http.StatusNotFound},
		{"bad id", http.MethodGet, "/groups/abc", "", http.StatusBadRequest},
		{"negative id", http.MethodDelete, "/groups/-1", "", http.StatusBadRequest},
		{"unknown kind", http.MethodPost, "/trucks", `{}`, http.StatusNotFound},
		{"bad json", http.MethodPost, "/groups", `{"groupName":`, http.StatusBadRequest},
		{"null body", http.MethodPost, "/groups", `null`, http.StatusBadRequest},
		{"bad update json", http.MethodPut, "/groups/1", `[`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}
}

func TestServer_MaintenanceForm(t *testing.T) {
	_, h := newTestServer(t)
	admin := login(t, h, adminEmail, adminPass)

	rr := get(h, "/maintenance", admin)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `"form":{"title":"Log Service","submit":"Save Service"`)
	assert.Contains(t, body, `"lookup":"vehicles/plateNo"`)
	assert.Contains(t, body, `>Log Service</button>`)

	plates := struct {
		Values []string `json:"values"`
	}{}
	rr = api(t, h, http.MethodGet, "/lookup/vehicles/plateNo", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plates))
	assert.Len(t, plates.Values, vehiclesCount, "vehicle dropdown options")

	assert.Equal(t, 3, decodeList(t, api(t, h, http.MethodGet, "/maintenance?sorts=&filters=", "")).Total)
	rr = api(t, h, http.MethodPost, "/maintenance", `{"vehicle":"AKP-1000","serviceType":"Tire Rotation",`+
		`"workshop":"Quick Fit","serviceDate":"2026-03-05","invoice":"invoice.pdf","documents":["a.jpg","b.jpg"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	res := decodeList(t, api(t, h, http.MethodGet, "/maintenance?sorts=-id&filters="+url.QueryEscape("serviceType==Tire Rotation"), ""))
	require.Equal(t, 2, res.Total)
	assert.Equal(t, "Quick Fit", res.Results[0]["workshop"])
	assert.Equal(t, []any{"a.jpg", "b.jpg"}, res.Results[0]["documents"])

	res = decodeList(t, api(t, h, http.MethodGet, "/maintenance?sorts=serviceDate&search=quick", ""))
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "2026-03-05", res.Results[0]["serviceDate"])
}

// form fields are found by a label substring, the first label containing the text has to be the field's own
func TestScreens_FormFields(t *testing.T) {
	kinds := map[string]bool{"text": true, "textarea": true, "select": true, "date": true, "file": true, "files": true}
	forms := 0
	for _, sc := range Screens {
		if sc.Form == nil {
			continue
		}
		forms++
		names := map[string]bool{}
		for i, f := range sc.Form.Fields {
			assert.True(t, kinds[f.Kind], "%s: kind %q of %s", sc.Path, f.Kind, f.Name)
			assert.False(t, names[f.Name], "%s: duplicate field %s", sc.Path, f.Name)
			names[f.Name] = true
			if f.Kind == "select" {
				assert.True(t, (len(f.Options) > 0) != (f.Lookup != ""), "%s: %s needs options or a lookup", sc.Path, f.Name)
			}
			for j := 0; j < i; j++ {
				other := strings.ToLower(sc.Form.Fields[j].Label)
				assert.NotContains(t, other, strings.ToLower(f.Label), "%s: %q shadowed by %q", sc.Path, f.Label, other)
			}
		}
	}
	assert.Equal(t, 1, forms)
}

func TestServer_Lookup(t *testing.T) {
	_, h := newTestServer(t)

	rr := api(t, h, http.MethodGet, "/lookup/devices/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"values":["Offline","Online"]}`, rr.Body.String())

	rr = api(t, h, http.MethodGet, "/lookup/groups/createdBy", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"values":["Maya Collins","Sandbox Admin"]}`, rr.Body.String())

	rr = api(t, h, http.MethodGet, "/lookup/trucks/status", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Sandbox Admin", "SA"},
		{"Maya Collins", "MC"},
		{"  Omar  Haddad Saleh", "OH"},
		{"Cher", "C"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, initials(tt.name))
		})
	}
}
