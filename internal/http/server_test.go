package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sweetdiary/internal/auth"
	"sweetdiary/internal/core"
	"sweetdiary/internal/ledger"
	"sweetdiary/internal/store/memory"
)

var june15 = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

// fakeAuth trusts whatever user it was told; empty means signed out.
type fakeAuth struct {
	user core.UserID
}

func (f *fakeAuth) CurrentUser(*http.Request) (core.UserID, error) {
	if f.user == "" {
		return "", auth.ErrNotSignedIn
	}
	return f.user, nil
}

func (f *fakeAuth) SignIn(_ context.Context, _ http.ResponseWriter, credential string) (core.UserID, error) {
	f.user = core.UserID(credential)
	return f.user, nil
}

func (f *fakeAuth) SignOut(http.ResponseWriter, *http.Request) { f.user = "" }

func (f *fakeAuth) OnChange(func(core.UserID, bool)) {}

func newTestServer(user core.UserID) (*Server, *memory.Store) {
	store := memory.New()
	l := ledger.New(store, ledger.WithClock(func() time.Time { return june15 }))
	srv := NewServer(":0", l, &fakeAuth{user: user}, "client-id")
	return srv, store
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer("u1")

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Sweet Diary") {
		t.Fatal("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
}

func TestSignedOutRedirectsToLogin(t *testing.T) {
	srv, _ := newTestServer("")

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want redirect", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q", loc)
	}

	// Partial requests cannot follow a redirect usefully; they get 401.
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/calendar", nil)
	req.Header.Set("HX-Request", "true")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("partial status = %d, want 401", rr.Code)
	}
}

func TestLoginPage(t *testing.T) {
	srv, _ := newTestServer("")

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "client-id") {
		t.Error("login page missing the configured client id")
	}
}

func TestCalendarPartial(t *testing.T) {
	srv, _ := newTestServer("u1")

	// Seed one entry through the public endpoint.
	rr := postForm(srv, "/entries", url.Values{
		"day":      {"2024-06-03"},
		"price":    {"300"},
		"calories": {"150"},
		"icon":     {"Sweet"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save entry status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/calendar", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("calendar status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "June 2024") {
		t.Error("calendar missing month label")
	}
	if !strings.Contains(body, "Sweet") || !strings.Contains(body, "¥300") {
		t.Error("calendar missing the seeded entry")
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, "2024-06") {
		t.Errorf("HX-Trigger = %q", trigger)
	}
}

func TestCalendarNavigation(t *testing.T) {
	srv, _ := newTestServer("u1")

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/calendar?nav=next", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "July 2024") {
		t.Fatalf("nav=next: %d, %s", rr.Code, rr.Body.String()[:min(120, rr.Body.Len())])
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/calendar?nav=prev", nil))
	if !strings.Contains(rr.Body.String(), "June 2024") {
		t.Error("nav=prev did not return to June")
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/calendar?nav=sideways", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad nav status = %d", rr.Code)
	}
}

func TestMonthSummaryReflectsWrites(t *testing.T) {
	srv, _ := newTestServer("u1")

	summary := func() string {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/month-summary?month=2024-06", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("summary status = %d", rr.Code)
		}
		return rr.Body.String()
	}

	if got := summary(); !strings.Contains(got, "¥0") {
		t.Error("empty month should show a zero total")
	}

	// A write must bust the cached summary.
	postForm(srv, "/entries", url.Values{"day": {"2024-06-03"}, "price": {"450"}, "calories": {"90"}})
	if got := summary(); !strings.Contains(got, "¥450") {
		t.Error("summary did not pick up the new entry")
	}
}

func TestSaveEntryValidation(t *testing.T) {
	srv, _ := newTestServer("u1")

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/entries", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /entries = %d, want 405", rr.Code)
	}

	cases := []url.Values{
		{"day": {"junk"}, "price": {"100"}},
		{"day": {"2024-06-03"}, "price": {"abc"}},
		{"day": {"2024-06-03"}, "price": {"-5"}},
		{"day": {"2024-06-03"}, "calories": {"-1"}},
		{"day": {"2024-06-03"}, "icon": {"Umami"}},
	}
	for _, form := range cases {
		if rr := postForm(srv, "/entries", form); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("form %v status = %d, want 422", form, rr.Code)
		}
	}
}

func TestGoalSaveAndLock(t *testing.T) {
	srv, _ := newTestServer("u1")

	rr := postForm(srv, "/goals", url.Values{
		"month":        {"2024-06"},
		"price_goal":   {"5000"},
		"calorie_goal": {"12000"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("first goal save = %d: %s", rr.Code, rr.Body.String())
	}

	// Second edit within the same real month conflicts.
	rr = postForm(srv, "/goals", url.Values{"month": {"2024-06"}, "price_goal": {"100"}})
	if rr.Code != http.StatusConflict {
		t.Fatalf("second goal save = %d, want 409", rr.Code)
	}

	// The summary shows the surviving goal and the locked state.
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/month-summary?month=2024-06", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "¥5,000") {
		t.Error("summary missing the goal")
	}
	if !strings.Contains(body, "locked") {
		t.Error("summary missing the locked hint")
	}
}

// failGoalStore wraps the memory store and fails goal reads on demand.
type failGoalStore struct {
	*memory.Store
	fail bool
}

func (s *failGoalStore) GetGoal(ctx context.Context, user core.UserID, m core.Month) (core.Goal, bool, error) {
	if s.fail {
		return core.Goal{}, false, errors.New("backend unavailable")
	}
	return s.Store.GetGoal(ctx, user, m)
}

func TestGoalSaveStoreFailure(t *testing.T) {
	store := &failGoalStore{Store: memory.New(), fail: true}
	l := ledger.New(store, ledger.WithClock(func() time.Time { return june15 }))
	srv := NewServer(":0", l, &fakeAuth{user: "u1"}, "client-id")

	// The lock state cannot be derived, so the save must not proceed.
	rr := postForm(srv, "/goals", url.Values{"month": {"2024-06"}, "price_goal": {"100"}})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("goal save with failing store = %d, want 500", rr.Code)
	}

	store.fail = false
	if rr := postForm(srv, "/goals", url.Values{"month": {"2024-06"}, "price_goal": {"100"}}); rr.Code != http.StatusOK {
		t.Errorf("goal save after recovery = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHistoryJSON(t *testing.T) {
	srv, _ := newTestServer("u1")

	for _, form := range []url.Values{
		{"day": {"2024-01-01"}, "icon": {"Sweet"}},
		{"day": {"2024-03-02"}, "icon": {"Sweet"}},
		{"day": {"2024-06-03"}, "icon": {"Cat"}},
	} {
		if rr := postForm(srv, "/entries", form); rr.Code != http.StatusOK {
			t.Fatalf("seed entry: %d", rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d", rr.Code)
	}

	var resp struct {
		Icons  []string `json:"icons"`
		Counts []int64  `json:"counts"`
		Total  int64    `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"Sweet", "Hot", "Sour", "Salty", "Cat"}
	if len(resp.Icons) != len(want) {
		t.Fatalf("icons = %v", resp.Icons)
	}
	for i, ic := range want {
		if resp.Icons[i] != ic {
			t.Errorf("icons[%d] = %s, want %s", i, resp.Icons[i], ic)
		}
	}
	if resp.Counts[0] != 2 || resp.Counts[4] != 1 || resp.Total != 3 {
		t.Errorf("counts = %v total = %d", resp.Counts, resp.Total)
	}
}
