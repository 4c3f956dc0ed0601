package http

import (
	"log/slog"
	"net/http"
	"strings"

	"sweetdiary/internal/core"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, user core.UserID) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	month := s.view(user).Cursor()
	data := struct {
		Month      string
		MonthLabel string
		Today      string
	}{
		Month:      month.Key(),
		MonthLabel: monthLabel(month),
		Today:      s.ledger.Today().Key(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.CurrentUser(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		ClientID string
	}{ClientID: s.clientID}

	if err := s.templates.ExecuteTemplate(w, "login.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Login template execution failed", "error", err, "template", "login.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleGoogleAuth receives the credential POSTed by Google's sign-in
// button, exchanges it for a session, and sends the browser home.
func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	credential := strings.TrimSpace(r.Form.Get("credential"))
	if credential == "" {
		http.Error(w, "missing credential", http.StatusBadRequest)
		return
	}

	user, err := s.auth.SignIn(r.Context(), w, credential)
	if err != nil {
		slog.WarnContext(r.Context(), "Sign-in rejected", "error", err)
		http.Error(w, "sign-in failed", http.StatusUnauthorized)
		return
	}

	slog.InfoContext(r.Context(), "User signed in", "user", user)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.auth.SignOut(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
