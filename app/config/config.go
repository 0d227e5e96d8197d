// Package config loads the run profile of the suite. The profile comes from an optional yaml file,
// then a .env file in the working directory fills unset environment variables and finally the
// environment (BASE_URL, TEST_USER_EMAIL, HEADLESS and so on) overrides what the file says.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoBaseURL returned when neither the profile nor the environment defines the application url
var ErrNoBaseURL = errors.New("BASE_URL is not set. Copy .env.example to .env and set BASE_URL")

// supported browser engines
const (
	Chromium = "chromium"
	Firefox  = "firefox"
	WebKit   = "webkit"
)

const (
	maxSlowMo  = 10 * time.Second
	maxTimeout = 10 * time.Minute
)

// Profile is everything a run needs to know about the target and the browser
type Profile struct {
	BaseURL      string      `yaml:"base_url" jsonschema:"required,description=url of the fleet application under test"`
	AdminBaseURL string      `yaml:"admin_base_url,omitempty" jsonschema:"description=url of the admin console used by customer scenarios"`
	APIBase      string      `yaml:"api_base,omitempty" jsonschema:"description=api base url, defaults to base_url"`
	User         Credentials `yaml:"user,omitempty" jsonschema:"description=test user credentials"`
	Browser      Browser     `yaml:"browser,omitempty"`
	Timeouts     Timeouts    `yaml:"timeouts,omitempty"`
	ReportsDir   string      `yaml:"reports_dir,omitempty" jsonschema:"description=directory for failure screenshots,default=reports"`
	Targets      []string    `yaml:"targets,omitempty" jsonschema:"description=extra urls checked by preflight"`
}

// Credentials of the test user
type Credentials struct {
	Email    string `yaml:"email,omitempty" jsonschema:"description=login email"`
	Password string `yaml:"password,omitempty" jsonschema:"description=login password"`
}

// Browser launch settings
type Browser struct {
	Name     string        `yaml:"name,omitempty" jsonschema:"enum=chromium,enum=firefox,enum=webkit,default=chromium"`
	Headless bool          `yaml:"headless,omitempty" jsonschema:"default=true"`
	Debug    bool          `yaml:"debug,omitempty" jsonschema:"description=inspector mode, forces headed browser"`
	SlowMo   time.Duration `yaml:"slow_mo,omitempty" jsonschema:"description=delay between browser operations"`
}

// Timeouts of browser and api waits
type Timeouts struct {
	Default    time.Duration `yaml:"default,omitempty" jsonschema:"description=default timeout of browser actions,default=60s"`
	API        time.Duration `yaml:"api,omitempty" jsonschema:"description=wait for api responses,default=30s"`
	Navigation time.Duration `yaml:"navigation,omitempty" jsonschema:"description=page navigation timeout,default=30s"`
	Preflight  time.Duration `yaml:"preflight,omitempty" jsonschema:"description=reachability check timeout,default=10s"`
}

// Default returns the profile with all defaults set and no target
func Default() Profile {
	return Profile{
		Browser:    Browser{Name: Chromium, Headless: true},
		Timeouts:   Timeouts{Default: 60 * time.Second, API: 30 * time.Second, Navigation: 30 * time.Second, Preflight: 10 * time.Second},
		ReportsDir: "reports",
	}
}

// Load makes the profile from the yaml file (optional, empty path skips it), the .env file and
// the environment, then validates it
func Load(file, dotEnv string) (*Profile, error) {
	p := Default()
	if file != "" {
		data, err := os.ReadFile(file) //nolint:gosec // profile path comes from the command line
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", file, err)
		}
		if err := p.decode(data); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", file, err)
		}
	}

	if err := loadDotEnv(dotEnv); err != nil {
		return nil, err
	}
	if err := p.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] profile loaded, %s", p)
	return &p, nil
}

// decode unmarshals yaml over the current values, unknown keys are rejected
func (p *Profile) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return err
	}
	return nil
}

// loadDotEnv sets variables from the .env file without overriding ones already set.
// A missing file is fine.
func loadDotEnv(file string) error {
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", file, err)
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}
	log.Printf("[DEBUG] environment loaded from %s", file)
	return nil
}

// applyEnv overrides the profile by environment variables. PWDEBUG=1|true turns on the inspector and
// makes the browser headed, HEADLESS=false|0 makes it headed, SLOWMO is in milliseconds.
func (p *Profile) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("BASE_URL", &p.BaseURL)
	str("ADMIN_BASE_URL", &p.AdminBaseURL)
	str("API_BASE", &p.APIBase)
	str("TEST_USER_EMAIL", &p.User.Email)
	str("TEST_USER_PASSWORD", &p.User.Password)

	if v, ok := lookup("HEADLESS"); ok && v != "" {
		p.Browser.Headless = !(strings.EqualFold(v, "false") || v == "0")
	}
	if v, ok := lookup("PWDEBUG"); ok && (v == "1" || strings.EqualFold(v, "true")) {
		p.Browser.Debug = true
	}
	if p.Browser.Debug {
		p.Browser.Headless = false
	}
	if v, ok := lookup("SLOWMO"); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SLOWMO %q: %w", v, err)
		}
		p.Browser.SlowMo = time.Duration(ms) * time.Millisecond
	}
	return nil
}

// Validate checks the profile is usable
func (p *Profile) Validate() error {
	if p.BaseURL == "" {
		return ErrNoBaseURL
	}
	urls := map[string]string{"base_url": p.BaseURL, "admin_base_url": p.AdminBaseURL, "api_base": p.APIBase}
	for name, v := range urls {
		if v == "" {
			continue
		}
		if err := checkURL(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i, t := range p.Targets {
		if err := checkURL(t); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
	}

	switch p.Browser.Name {
	case Chromium, Firefox, WebKit:
	default:
		return fmt.Errorf("unknown browser %q, expected %s, %s or %s", p.Browser.Name, Chromium, Firefox, WebKit)
	}
	if p.Browser.SlowMo < 0 || p.Browser.SlowMo > maxSlowMo {
		return fmt.Errorf("slow_mo must be between 0 and %v", maxSlowMo)
	}

	timeouts := []struct {
		name string
		val  time.Duration
	}{
		{"default", p.Timeouts.Default}, {"api", p.Timeouts.API},
		{"navigation", p.Timeouts.Navigation}, {"preflight", p.Timeouts.Preflight},
	}
	for _, t := range timeouts {
		if t.val <= 0 || t.val > maxTimeout {
			return fmt.Errorf("timeouts.%s must be positive and not exceed %v", t.name, maxTimeout)
		}
	}

	if (p.User.Email == "") != (p.User.Password == "") {
		return errors.New("user email and password must be set together")
	}
	if p.ReportsDir == "" {
		return errors.New("reports_dir is required")
	}
	return nil
}

// API returns the api base url, falls back to the application url
func (p *Profile) API() string {
	if p.APIBase != "" {
		return strings.TrimSuffix(p.APIBase, "/")
	}
	return strings.TrimSuffix(p.BaseURL, "/")
}

// Admin returns the admin console url, falls back to the application url
func (p *Profile) Admin() string {
	if p.AdminBaseURL != "" {
		return p.AdminBaseURL
	}
	return p.BaseURL
}

// URL joins the application url and a path
func (p *Profile) URL(path string) string {
	return strings.TrimSuffix(p.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// String is safe for logs, password is masked
func (p Profile) String() string {
	pass := ""
	if p.User.Password != "" {
		pass = "*****"
	}
	return fmt.Sprintf("base=%s, user=%s:%s, browser=%s, headless=%v, debug=%v, slowmo=%v, timeout=%v",
		p.BaseURL, p.User.Email, pass, p.Browser.Name, p.Browser.Headless, p.Browser.Debug, p.Browser.SlowMo, p.Timeouts.Default)
}

func checkURL(v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", v, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", v)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", v)
	}
	return nil
}
