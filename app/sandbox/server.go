// Package sandbox serves a self-contained stand-in of the fleet management application: sign in,
// the sidebar screens with the markup the page objects drive, and the /core/api/v1 json api backed
// by sqlite. Scenarios can run against it anywhere, no deployed instance needed.
package sandbox

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/go-pkgz/lcw/v2"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed seed.yml
var defaultSeed []byte

// AppName is reported in the App-Name header of every response
const AppName = "fleetcheck-sandbox"

// AdminRole can see the customers screen
const AdminRole = "Super Admin"

// Config defines the sandbox server
type Config struct {
	DBPath     string // sqlite file, ":memory:" for throwaway runs
	SeedFile   string // optional yaml seed, the embedded one is used if empty
	Version    string
	SessionTTL time.Duration // defaults to 24h
	CacheKeys  int           // max cached list responses, defaults to 1000
}

// Server is the sandbox web server
type Server struct {
	store     *Store
	cache     lcw.LoadingCache[[]byte]
	sessions  *sessions
	templates map[string]*template.Template
	version   string
}

// pageData is passed to every page template
type pageData struct {
	Title      string
	Error      string
	Account    Account
	IsAdmin    bool
	Screens    []Screen
	Screen     Screen
	ScreenJSON template.JS
	Counts     map[string]int
	Active     string
	Version    string
}

// New opens the store, seeds it and prepares templates and the list cache
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}
	store, err := NewStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sandbox initialization failed: %w", err)
	}

	seedData := defaultSeed
	if cfg.SeedFile != "" {
		if seedData, err = os.ReadFile(cfg.SeedFile); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("sandbox initialization failed: %w", err)
		}
	}
	seed, err := ParseSeed(seedData)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sandbox initialization failed: %w", err)
	}
	seed.ResolveDates(time.Now())
	if err = store.Load(ctx, seed); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sandbox initialization failed: %w", err)
	}

	maxKeys := cfg.CacheKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	cache, err := lcw.NewLruCache(lcw.NewOpts[[]byte]().MaxKeys(maxKeys))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sandbox initialization failed: can't make list cache: %w", err)
	}

	s := &Server{store: store, cache: cache, sessions: newSessions(cfg.SessionTTL), version: cfg.Version}
	if s.templates, err = parseTemplates(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sandbox initialization failed: %w", err)
	}
	return s, nil
}

// Run serves on address until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown sandbox: %v", err)
		}
	}()

	log.Printf("[INFO] starting sandbox on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("sandbox failed: %w", err)
	}
	return nil
}

// Close releases the cache and the store
func (s *Server) Close() error {
	if err := s.cache.Close(); err != nil {
		log.Printf("[WARN] can't close list cache, %v", err)
	}
	return s.store.Close()
}

// routes returns the handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo(AppName, "umputun", s.version),
		rest.Ping,
		rest.SizeLimit(1024*1024),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.HandleFunc("GET /login", s.handleLoginForm)
	router.With(tollbooth.HTTPMiddleware(tollbooth.NewLimiter(10, nil))).HandleFunc("POST /login", s.handleLogin)
	router.HandleFunc("GET /logout", s.handleLogout)

	router.Group().Route(func(app *routegroup.Bundle) {
		app.Use(s.authMiddleware)
		app.HandleFunc("GET /{$}", s.handleDashboard)
		app.HandleFunc("GET /profile", s.handleStatic("profile.html", "My Profile"))
		app.HandleFunc("GET /company-detail", s.handleStatic("company.html", "Company"))
		app.HandleFunc("GET /fleet-tracking", s.handleStatic("tracking.html", "Fleet Tracking"))
		for _, sc := range Screens {
			app.HandleFunc("GET "+sc.Path, s.handleScreen(sc))
		}

		app.Mount(apiPrefix).Route(func(api *routegroup.Bundle) {
			api.Use(rest.NoCache)
			api.HandleFunc("GET /me", s.handleMe)
			api.HandleFunc("GET /lookup/{kind}/{field}", s.handleLookup)
			api.HandleFunc("GET /{kind}", s.handleList)
			api.HandleFunc("GET /{kind}/{id}", s.handleGet)
			api.HandleFunc("POST /{kind}", s.handleCreate)
			api.HandleFunc("PUT /{kind}/{id}", s.handleUpdate)
			api.HandleFunc("DELETE /{kind}/{id}", s.handleDelete)
		})
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}
	return router
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r, "Fleet Overview", "/")
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		log.Printf("[WARN] can't count records, %v", err)
	}
	data.Counts = counts
	s.render(w, http.StatusOK, "dashboard.html", data)
}

func (s *Server) handleStatic(tmpl, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, tmpl, s.pageData(r, title, r.URL.Path))
	}
}

func (s *Server) handleScreen(sc Screen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, sc.Title, sc.Path)
		if sc.AdminOnly && !data.IsAdmin {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		js, err := json.Marshal(sc)
		if err != nil {
			http.Error(w, "can't encode screen", http.StatusInternalServerError)
			return
		}
		data.Screen, data.ScreenJSON = sc, template.JS(js) //nolint:gosec // screen definitions are static
		s.render(w, http.StatusOK, "list.html", data)
	}
}

func (s *Server) pageData(r *http.Request, title, active string) pageData {
	acc, _ := accountFrom(r.Context())
	res := pageData{Title: title, Account: acc, IsAdmin: acc.Role == AdminRole, Active: active, Version: s.version}
	for _, sc := range Screens {
		if sc.AdminOnly && !res.IsAdmin {
			continue
		}
		res.Screens = append(res.Screens, sc)
	}
	return res
}

// render executes the page template into a buffer and writes it with the status
func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, page, data); err != nil {
		log.Printf("[WARN] failed to execute template %s: %v", page, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses every page together with the shared layout, login is standalone
func parseTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"initials": initials,
	}
	res := map[string]*template.Template{}
	login, err := template.New("login.html").Funcs(funcMap).ParseFS(templatesFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	res["login.html"] = login

	for _, page := range []string{"dashboard.html", "list.html", "profile.html", "company.html", "tracking.html"} {
		t, err := template.New(page).Funcs(funcMap).ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", page, err)
		}
		res[page] = t
	}
	return res, nil
}

// initials makes the avatar text, "Sandbox Admin" gives "SA"
func initials(name string) string {
	res := make([]rune, 0, 2)
	prev := ' '
	for _, c := range name {
		if prev == ' ' && c != ' ' {
			res = append(res, c)
			if len(res) == 2 {
				break
			}
		}
		prev = c
	}
	return string(res)
}
