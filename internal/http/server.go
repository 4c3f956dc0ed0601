// Package http is the diary's web surface: server-rendered calendar
// pages with HTMX partials, entry and goal submission, the history
// radar chart, and Google sign-in.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"sweetdiary/internal/auth"
	"sweetdiary/internal/cache"
	"sweetdiary/internal/core"
	"sweetdiary/internal/ledger"
	appweb "sweetdiary/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	ledger      *ledger.Ledger
	auth        auth.Provider
	clientID    string // Google OAuth client, rendered into the sign-in page
	rateLimiter *rateLimiter

	// LRU caches for month views and history counts
	monthCache   *cache.LRU[ledger.MonthView]
	historyCache *cache.LRU[core.IconCounts]
	cleanup      *cache.Manager

	// One navigation view per signed-in user, dropped on sign-out.
	viewsMu sync.Mutex
	views   map[core.UserID]*ledger.View

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, l *ledger.Ledger, provider auth.Provider, googleClientID string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:       l,
		auth:         provider,
		clientID:     googleClientID,
		rateLimiter:  newRateLimiter(),
		monthCache:   cache.NewLRU[ledger.MonthView](200, 5*time.Minute),
		historyCache: cache.NewLRU[core.IconCounts](100, 5*time.Minute),
		cleanup:      cache.NewManager(),
		views:        make(map[core.UserID]*ledger.View),
	}
	s.cleanup.Register(s.monthCache)
	s.cleanup.Register(s.historyCache)
	s.cleanup.StartCleanup(10 * time.Minute)

	// A sign-out invalidates everything cached for the user.
	provider.OnChange(func(user core.UserID, signedIn bool) {
		if !signedIn {
			s.dropUser(user)
		}
	})

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.withUser(s.handleIndex)))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/auth/google", s.withSecurityHeaders(s.handleGoogleAuth))
	mux.HandleFunc("/auth/logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("/entries", s.withSecurityHeaders(s.withUser(s.handleSaveEntry)))
	mux.HandleFunc("/goals", s.withSecurityHeaders(s.withUser(s.handleSaveGoal)))
	mux.HandleFunc("/history", s.withSecurityHeaders(s.withUser(s.handleHistory)))
	mux.HandleFunc("/api/history", s.withSecurityHeaders(s.withUser(s.handleHistoryJSON)))

	// UI partials
	mux.HandleFunc("/ui/calendar", s.withSecurityHeaders(s.withUser(s.handleCalendar)))
	mux.HandleFunc("/ui/month-summary", s.withSecurityHeaders(s.withUser(s.handleMonthSummary)))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cleanup.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// view returns the user's navigation view, creating one at the real
// current month on first use.
func (s *Server) view(user core.UserID) *ledger.View {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	v, ok := s.views[user]
	if !ok {
		v = ledger.NewView(s.ledger, user, s.ledger.CurrentMonth())
		s.views[user] = v
	}
	return v
}

func (s *Server) dropUser(user core.UserID) {
	s.viewsMu.Lock()
	delete(s.views, user)
	s.viewsMu.Unlock()
	// Month view entries are user-prefixed and expire via TTL.
	s.historyCache.Delete(string(user))
}

func (s *Server) monthKey(user core.UserID, m core.Month) string {
	return string(user) + "|" + m.Key()
}

func (s *Server) invalidateMonth(user core.UserID, m core.Month) {
	s.monthCache.Delete(s.monthKey(user, m))
}

func (s *Server) invalidateHistory(user core.UserID) {
	s.historyCache.Delete(string(user))
}

// getMonthView loads a month through the LRU cache. Writes invalidate
// the affected key, so a hit is at most TTL-stale for other sessions.
func (s *Server) getMonthView(ctx context.Context, user core.UserID, m core.Month) (ledger.MonthView, error) {
	key := s.monthKey(user, m)
	if mv, found := s.monthCache.Get(key); found {
		slog.DebugContext(ctx, "Month view cache hit", "user", user, "month", m.Key())
		return mv, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	mv, err := s.ledger.LoadMonth(cctx, user, m)
	if err != nil {
		return ledger.MonthView{}, fmt.Errorf("load month view (user=%s, month=%s): %w", user, m.Key(), err)
	}

	s.monthCache.Set(key, mv)
	return mv, nil
}

// getHistory loads the all-time icon counts through the LRU cache.
func (s *Server) getHistory(ctx context.Context, user core.UserID) (core.IconCounts, error) {
	if counts, found := s.historyCache.Get(string(user)); found {
		slog.DebugContext(ctx, "History cache hit", "user", user)
		return counts, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	counts, err := s.ledger.History(cctx, user)
	if err != nil {
		return nil, fmt.Errorf("load history (user=%s): %w", user, err)
	}

	s.historyCache.Set(string(user), counts)
	return counts, nil
}

// withUser resolves the session and passes the user through; requests
// without one are redirected to the sign-in page (or get 401 if they
// are partial/API requests that cannot follow a redirect usefully).
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, core.UserID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.CurrentUser(r)
		if err != nil {
			if r.Header.Get("HX-Request") == "true" || r.URL.Path == "/api/history" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, user)
	}
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := clientIP(r)

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit writes only; partial refreshes stay cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com https://accounts.google.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; frame-src https://accounts.google.com; img-src 'self' data:; connect-src 'self' https://accounts.google.com")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return ip
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
