package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"sweetdiary/internal/core"
)

// handleHistory renders the radar chart page; the chart itself fetches
// its numbers from /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, user core.UserID) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Icons []string
	}{}
	for _, ic := range core.Icons() {
		data.Icons = append(data.Icons, string(ic))
	}

	if err := s.templates.ExecuteTemplate(w, "history.html", data); err != nil {
		slog.ErrorContext(r.Context(), "History template execution failed", "error", err, "template", "history.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleHistoryJSON serves the all-time icon distribution. Axis order
// matches core.Icons so the chart labels stay stable.
func (s *Server) handleHistoryJSON(w http.ResponseWriter, r *http.Request, user core.UserID) {
	counts, err := s.getHistory(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "History load error", "error", err, "user", user)
		http.Error(w, "could not load history", http.StatusInternalServerError)
		return
	}

	resp := struct {
		Icons  []string `json:"icons"`
		Counts []int64  `json:"counts"`
		Total  int64    `json:"total"`
	}{Total: counts.Total()}
	for _, ic := range core.Icons() {
		resp.Icons = append(resp.Icons, string(ic))
		resp.Counts = append(resp.Counts, counts.Of(ic))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "History encode error", "error", err)
	}
}
