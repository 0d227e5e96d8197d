package sandbox

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
)

const sessionCookie = "fleetcheck-session"

type ctxKey struct{}

// session is a signed-in account with its expiration
type session struct {
	account Account
	expires time.Time
}

// sessions keeps active sign-ins by token
type sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]session
}

func newSessions(ttl time.Duration) *sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessions{ttl: ttl, m: map[string]session{}}
}

func (s *sessions) start(a Account) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[token] = session{account: a, expires: time.Now().Add(s.ttl)}
	return token
}

func (s *sessions) get(token string) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[token]
	if !ok {
		return Account{}, false
	}
	if time.Now().After(sess.expires) {
		delete(s.m, token)
		return Account{}, false
	}
	return sess.account, true
}

func (s *sessions) end(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, token)
}

// accountFrom returns the signed-in account of the request, set by authMiddleware
func accountFrom(ctx context.Context) (Account, bool) {
	a, ok := ctx.Value(ctxKey{}).(Account)
	return a, ok
}

// handleLoginForm renders the sign-in form
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, ok := s.sessions.get(c.Value); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.render(w, http.StatusOK, "login.html", pageData{Title: "Sign in"})
}

// handleLogin checks credentials and starts a session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	email, password := strings.TrimSpace(r.FormValue("email")), r.FormValue("password")
	if email == "" || password == "" {
		s.render(w, http.StatusUnauthorized, "login.html", pageData{Title: "Sign in", Error: "Email and password are required"})
		return
	}
	acc, err := s.store.Authenticate(r.Context(), email, password)
	if err != nil {
		log.Printf("[WARN] sign in failed, %v", err)
		s.render(w, http.StatusUnauthorized, "login.html", pageData{Title: "Sign in", Error: "Invalid email or password"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.sessions.start(acc),
		Path:     "/",
		MaxAge:   int(s.sessions.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	})
	log.Printf("[INFO] %s signed in", acc.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout ends the session and sends the browser to the login form
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.end(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true,
		SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// authMiddleware lets signed-in requests through. Pages redirect to /login, api calls get 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		if c, err := r.Cookie(sessionCookie); err == nil {
			if acc, ok := s.sessions.get(c.Value); ok {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acc)))
				return
			}
		}

		// basic auth for scripted api clients
		if email, password, ok := r.BasicAuth(); ok {
			if acc, err := s.store.Authenticate(r.Context(), email, password); err == nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acc)))
				return
			}
		}

		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			w.Header().Set("WWW-Authenticate", `Basic realm="fleetcheck sandbox"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
