// Package auth owns sign-in state: verifying Google ID tokens, issuing
// session cookies, and telling handlers who the current user is.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"sweetdiary/internal/core"
)

// ErrNotSignedIn is returned when an operation needs a user and the
// request carries no valid session. The HTTP layer turns it into a
// redirect to the sign-in flow.
var ErrNotSignedIn = errors.New("not signed in")

// Provider is what the rest of the application sees of authentication.
type Provider interface {
	// CurrentUser resolves the signed-in user for a request, or
	// ErrNotSignedIn.
	CurrentUser(r *http.Request) (core.UserID, error)

	// SignIn validates the credential (a Google ID token) and, on
	// success, attaches a session to the response.
	SignIn(ctx context.Context, w http.ResponseWriter, credential string) (core.UserID, error)

	// SignOut clears the session.
	SignOut(w http.ResponseWriter, r *http.Request)

	// OnChange registers a callback fired on sign-in (signedIn true)
	// and sign-out (false).
	OnChange(func(user core.UserID, signedIn bool))
}

// notifier implements the OnChange fan-out shared by providers.
type notifier struct {
	mu        sync.Mutex
	callbacks []func(core.UserID, bool)
}

func (n *notifier) OnChange(cb func(core.UserID, bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callbacks = append(n.callbacks, cb)
}

func (n *notifier) notify(user core.UserID, signedIn bool) {
	n.mu.Lock()
	cbs := append(([]func(core.UserID, bool))(nil), n.callbacks...)
	n.mu.Unlock()
	for _, cb := range cbs {
		cb(user, signedIn)
	}
}
