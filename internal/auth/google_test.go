package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/idtoken"

	"sweetdiary/internal/core"
)

func newTestProvider(t *testing.T) *GoogleProvider {
	t.Helper()
	p, err := NewGoogleProvider(GoogleConfig{
		ClientID:      "client-id",
		SessionSecret: []byte("0123456789abcdef"),
		SessionTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewGoogleProvider: %v", err)
	}
	return p
}

func TestNewGoogleProviderValidatesConfig(t *testing.T) {
	if _, err := NewGoogleProvider(GoogleConfig{SessionSecret: []byte("x")}); err == nil {
		t.Error("missing client ID accepted")
	}
	if _, err := NewGoogleProvider(GoogleConfig{ClientID: "cid"}); err == nil {
		t.Error("missing session secret accepted")
	}
}

func TestSignInSetsSession(t *testing.T) {
	p := newTestProvider(t)
	p.validate = func(_ context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "good-token" {
			return nil, errors.New("bad token")
		}
		if audience != "client-id" {
			t.Errorf("audience = %q", audience)
		}
		return &idtoken.Payload{Subject: "google-sub-1"}, nil
	}

	var changes []string
	p.OnChange(func(u core.UserID, signedIn bool) {
		changes = append(changes, string(u))
		if !signedIn {
			t.Error("sign-in notified as sign-out")
		}
	})

	rr := httptest.NewRecorder()
	user, err := p.SignIn(context.Background(), rr, "good-token")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user != "google-sub-1" {
		t.Errorf("user = %q", user)
	}
	if len(changes) != 1 || changes[0] != "google-sub-1" {
		t.Errorf("changes = %v", changes)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("cookies = %v", cookies)
	}

	// The issued cookie resolves back to the same user.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got, err := p.CurrentUser(req)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if got != user {
		t.Errorf("CurrentUser = %q, want %q", got, user)
	}
}

func TestSignInRejectsBadToken(t *testing.T) {
	p := newTestProvider(t)
	p.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("invalid token")
	}

	rr := httptest.NewRecorder()
	if _, err := p.SignIn(context.Background(), rr, "bad"); err == nil {
		t.Fatal("bad token accepted")
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("cookie set despite rejection")
	}
}

func TestCurrentUserWithoutSession(t *testing.T) {
	p := newTestProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := p.CurrentUser(req); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("CurrentUser = %v, want ErrNotSignedIn", err)
	}

	// A garbage cookie is the same as no session.
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not.a.session"})
	if _, err := p.CurrentUser(req); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("CurrentUser garbage = %v, want ErrNotSignedIn", err)
	}
}

func TestSignOutClearsCookieAndNotifies(t *testing.T) {
	p := newTestProvider(t)
	p.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Subject: "u1"}, nil
	}

	rr := httptest.NewRecorder()
	if _, err := p.SignIn(context.Background(), rr, "t"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	session := rr.Result().Cookies()[0]

	var signedOut []string
	p.OnChange(func(u core.UserID, signedIn bool) {
		if !signedIn {
			signedOut = append(signedOut, string(u))
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(session)
	out := httptest.NewRecorder()
	p.SignOut(out, req)

	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("cookie not cleared: %v", cleared)
	}
	if len(signedOut) != 1 || signedOut[0] != "u1" {
		t.Errorf("signedOut = %v", signedOut)
	}
}
