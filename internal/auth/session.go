package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sweetdiary/internal/core"
)

// SessionCookie is the name of the signed session cookie.
const SessionCookie = "sd_session"

var (
	errBadSession     = errors.New("malformed session")
	errBadSignature   = errors.New("session signature mismatch")
	errSessionExpired = errors.New("session expired")
)

// sessionCodec signs and verifies session cookie values. The value is
// base64(user).expiry-unix.base64(hmac-sha256(user|expiry)); nothing
// sensitive is stored client-side beyond the opaque user id.
type sessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newSessionCodec(secret []byte, ttl time.Duration) *sessionCodec {
	return &sessionCodec{secret: secret, ttl: ttl, now: time.Now}
}

func (c *sessionCodec) encode(user core.UserID) string {
	expiry := c.now().Add(c.ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(user)) + "." + strconv.FormatInt(expiry, 10)
	return payload + "." + c.sign(payload)
}

func (c *sessionCodec) decode(value string) (core.UserID, error) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", errBadSession
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(c.sign(payload)), []byte(parts[2])) {
		return "", errBadSignature
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", errBadSession
	}
	if c.now().Unix() > expiry {
		return "", errSessionExpired
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errBadSession
	}
	user := core.UserID(raw)
	if err := user.Validate(); err != nil {
		return "", fmt.Errorf("session user: %w", err)
	}
	return user, nil
}

func (c *sessionCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
