package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/idtoken"

	"sweetdiary/internal/core"
)

// GoogleProvider verifies Google ID tokens (the credential produced by
// Google's sign-in button) and maintains signed session cookies. The
// token's subject claim becomes the user id, matching the hosted
// account layout the diary data is keyed by.
type GoogleProvider struct {
	notifier
	clientID string
	codec    *sessionCodec
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
	secure   bool
}

// GoogleConfig configures a GoogleProvider.
type GoogleConfig struct {
	// ClientID is the OAuth client the ID token must be issued for.
	ClientID string
	// SessionSecret signs session cookies.
	SessionSecret []byte
	// SessionTTL bounds how long a session stays valid.
	SessionTTL time.Duration
	// SecureCookies marks cookies Secure; off for plain-HTTP dev.
	SecureCookies bool
}

func NewGoogleProvider(cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("missing Google client ID")
	}
	if len(cfg.SessionSecret) == 0 {
		return nil, errors.New("missing session secret")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GoogleProvider{
		clientID: cfg.ClientID,
		codec:    newSessionCodec(cfg.SessionSecret, ttl),
		validate: idtoken.Validate,
		secure:   cfg.SecureCookies,
	}, nil
}

// CurrentUser resolves the session cookie, or ErrNotSignedIn.
func (p *GoogleProvider) CurrentUser(r *http.Request) (core.UserID, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", ErrNotSignedIn
	}
	user, err := p.codec.decode(cookie.Value)
	if err != nil {
		slog.DebugContext(r.Context(), "Session rejected", "error", err)
		return "", ErrNotSignedIn
	}
	return user, nil
}

// SignIn verifies the ID token against our client ID and sets the
// session cookie. The Google subject claim is the stable user id.
func (p *GoogleProvider) SignIn(ctx context.Context, w http.ResponseWriter, credential string) (core.UserID, error) {
	payload, err := p.validate(ctx, credential, p.clientID)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}
	user := core.UserID(payload.Subject)
	if err := user.Validate(); err != nil {
		return "", fmt.Errorf("token subject: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    p.codec.encode(user),
		Path:     "/",
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.codec.ttl / time.Second),
	})
	p.notify(user, true)
	slog.InfoContext(ctx, "User signed in", "user", user)
	return user, nil
}

// SignOut expires the session cookie.
func (p *GoogleProvider) SignOut(w http.ResponseWriter, r *http.Request) {
	user, err := p.CurrentUser(r)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	if err == nil {
		p.notify(user, false)
		slog.InfoContext(r.Context(), "User signed out", "user", user)
	}
}
