package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"sweetdiary/internal/calendar"
	"sweetdiary/internal/core"
	"sweetdiary/internal/ledger"
)

type cellView struct {
	Day      int
	Key      string
	InMonth  bool
	Today    bool
	HasEntry bool
	Price    string
	Calories int64
	Icon     string
}

type calendarView struct {
	Month      string
	MonthLabel string
	Weekdays   []string
	Weeks      [][]cellView
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// handleCalendar renders the month grid partial. Navigation goes
// through the user's View so a slow response for a month the user has
// already left never lands on screen.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, user core.UserID) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	v := s.view(user)
	var (
		mv  ledger.MonthView
		err error
	)
	switch nav := strings.TrimSpace(r.URL.Query().Get("nav")); nav {
	case "next":
		mv, err = v.Next(r.Context())
	case "prev":
		mv, err = v.Prev(r.Context())
	case "today":
		mv, err = v.Goto(r.Context(), s.ledger.CurrentMonth())
	case "":
		if key := strings.TrimSpace(r.URL.Query().Get("month")); key != "" {
			var m core.Month
			if m, err = core.ParseMonth(key); err != nil {
				slog.WarnContext(r.Context(), "Invalid month parameter", "month", key)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			mv, err = v.Goto(r.Context(), m)
		} else {
			mv, err = v.Reload(r.Context())
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Calendar load error", "error", err, "user", user)
		// The view keeps its last-good month; render that if we have one.
		var ok bool
		if mv, ok = v.Current(); !ok {
			_, _ = w.Write([]byte(`<div class="error">Could not load the calendar. Try again.</div>`))
			return
		}
	}

	data := calendarView{
		Month:      mv.Month.Key(),
		MonthLabel: monthLabel(mv.Month),
		Weekdays:   weekdayNames,
	}
	cells := calendar.Grid(mv.Month, s.ledger.Today())
	for _, week := range calendar.Weeks(cells) {
		row := make([]cellView, 0, len(week))
		for _, c := range week {
			cv := cellView{
				Day:     c.Day.Day(),
				Key:     c.Day.Key(),
				InMonth: c.InMonth,
				Today:   c.Today,
			}
			if c.InMonth {
				if e, ok := mv.Entry(c.Day); ok {
					cv.HasEntry = true
					cv.Price = formatYen(e.Price)
					cv.Calories = e.Calories
					cv.Icon = string(e.Icon)
				}
			}
			row = append(row, cv)
		}
		data.Weeks = append(data.Weeks, row)
	}

	// Tell the page which month is showing so the summary panel follows.
	w.Header().Set("HX-Trigger", `{"diary:month": {"month": "`+mv.Month.Key()+`"}}`)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="calendar"><div class="placeholder">` + template.HTMLEscapeString(data.MonthLabel) + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "calendar.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "calendar.html", "month", data.Month)
		_, _ = w.Write([]byte(`<section id="calendar"><div class="error">Could not render the calendar</div></section>`))
	}
}

// handleMonthSummary renders the totals-and-goal side panel partial.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request, user core.UserID) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	m := s.view(user).Cursor()
	if key := strings.TrimSpace(r.URL.Query().Get("month")); key != "" {
		parsed, err := core.ParseMonth(key)
		if err != nil {
			slog.WarnContext(r.Context(), "Invalid month parameter", "month", key)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m = parsed
	}

	mv, err := s.getMonthView(r.Context(), user, m)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month summary error", "error", err, "user", user, "month", m.Key())
		_, _ = w.Write([]byte(`<section id="month-summary" class="month-summary"><div class="error">Could not load the summary</div></section>`))
		return
	}

	data := struct {
		Month         string
		MonthLabel    string
		TotalPrice    string
		TotalCalories int64
		EntryCount    int
		HasPriceGoal  bool
		PriceGoal     string
		HasCalGoal    bool
		CalGoal       int64
		CanEdit       bool
		OverPrice     bool
		OverCalories  bool
	}{
		Month:         mv.Month.Key(),
		MonthLabel:    monthLabel(mv.Month),
		TotalPrice:    formatYen(mv.Summary.TotalPrice),
		TotalCalories: mv.Summary.TotalCalories,
		EntryCount:    mv.Summary.EntryCount,
		CanEdit:       mv.CanEdit,
		OverPrice:     mv.OverPrice,
		OverCalories:  mv.OverCalories,
	}
	if mv.Goal.PriceGoal != nil {
		data.HasPriceGoal = true
		data.PriceGoal = formatYen(*mv.Goal.PriceGoal)
	}
	if mv.Goal.CalorieGoal != nil {
		data.HasCalGoal = true
		data.CalGoal = *mv.Goal.CalorieGoal
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="month-summary" class="month-summary"><div class="placeholder">Total: ` + data.TotalPrice + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "month_summary.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "month_summary.html", "month", m.Key())
		_, _ = w.Write([]byte(`<section id="month-summary" class="month-summary"><div class="error">Could not render the summary</div></section>`))
	}
}

// handleSaveEntry upserts one day's record from the entry form.
func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request, user core.UserID) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	day, err := core.ParseDay(sanitizeInput(r.Form.Get("day")))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid date</div>`))
		return
	}
	price, err := parseAmount(r.Form.Get("price"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid price</div>`))
		return
	}
	calories, err := parseAmount(r.Form.Get("calories"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid calories</div>`))
		return
	}

	entry := core.Entry{
		Day:      day,
		Price:    core.Yen(price),
		Calories: calories,
		Icon:     core.Icon(sanitizeInput(r.Form.Get("icon"))),
	}
	if err := entry.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	if err := s.ledger.SaveEntry(r.Context(), user, entry); err != nil {
		slog.ErrorContext(r.Context(), "Entry save error", "error", err, "user", user, "day", day.Key())
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not save the entry</div>`))
		return
	}

	m := core.MonthOf(day.Time)
	s.invalidateMonth(user, m)
	s.invalidateHistory(user)
	w.Header().Set("HX-Trigger", `{"diary:changed": {"month": "`+m.Key()+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Saved ` + template.HTMLEscapeString(day.Key()) +
		`: ` + template.HTMLEscapeString(formatYen(entry.Price)) + `</div>`))
}

// handleSaveGoal upserts the month's goal. A locked goal answers 409.
func (s *Server) handleSaveGoal(w http.ResponseWriter, r *http.Request, user core.UserID) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	m, err := core.ParseMonth(sanitizeInput(r.Form.Get("month")))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid month</div>`))
		return
	}
	rawPrice, err := parseOptionalAmount(r.Form.Get("price_goal"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid price goal</div>`))
		return
	}
	calorieGoal, err := parseOptionalAmount(r.Form.Get("calorie_goal"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid calorie goal</div>`))
		return
	}
	var priceGoal *core.Yen
	if rawPrice != nil {
		y := core.Yen(*rawPrice)
		priceGoal = &y
	}

	// Each submission runs through a fresh editor: refresh derives
	// locked/editable from store state, and the save re-validates the
	// lock at write time.
	editor := ledger.NewGoalEditor(s.ledger, user, m)
	if err := editor.Refresh(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Goal state load error", "error", err, "user", user, "month", m.Key())
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not save the goal</div>`))
		return
	}
	editor.SetDraft(priceGoal, calorieGoal)
	if err := editor.Save(r.Context()); err != nil {
		if errors.Is(err, ledger.ErrEditLocked) {
			slog.InfoContext(r.Context(), "Goal edit rejected, locked", "user", user, "month", m.Key())
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`<div class="error">Goals can only be changed once a month. Try again next month.</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Goal save error", "error", err, "user", user, "month", m.Key())
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Could not save the goal</div>`))
		return
	}

	s.invalidateMonth(user, m)
	w.Header().Set("HX-Trigger", `{"diary:changed": {"month": "`+m.Key()+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Goal saved for ` + template.HTMLEscapeString(monthLabel(m)) + `</div>`))
}
