package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultSessionTTL is the lifetime of a freshly created session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionUser is the projection of a user exposed past the session boundary.
// It never carries the password hash.
type SessionUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session is a resolved, unexpired session.
type Session struct {
	Token     string      `json:"-"`
	User      SessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expires"`
}

// SessionStore persists session rows. FindSession returns ErrNotFound for an unknown
// token and must not filter by expiry; DeleteSession must succeed for an absent token.
type SessionStore interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	FindSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// SessionManager issues, resolves and destroys cookie-bound sessions.
type SessionManager struct {
	store      SessionStore
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(store SessionStore, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		now:        time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (sm *SessionManager) SetClock(now func() time.Time) {
	sm.now = now
}

// Create persists a new session for the user and returns its token.
func (sm *SessionManager) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := sm.now().Add(sm.ttl).UTC()
	if err := sm.store.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("session: create: %w", err)
	}
	return token, expiresAt, nil
}

// SetCookie writes the session cookie.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sm.ttl / time.Second),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie on the client.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the raw session token carried by the request, if any.
func (sm *SessionManager) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Get resolves the request's session. A missing cookie, unknown token or expired row
// yields (nil, nil); only storage failures return an error.
func (sm *SessionManager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, ok := sm.Token(r)
	if !ok {
		return nil, nil
	}
	return sm.Lookup(ctx, token)
}

// Lookup resolves a raw token with the same semantics as Get.
func (sm *SessionManager) Lookup(ctx context.Context, token string) (*Session, error) {
	sess, err := sm.store.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: lookup: %w", err)
	}
	if sess == nil || !sm.now().Before(sess.ExpiresAt) {
		return nil, nil
	}
	sess.Token = token
	return sess, nil
}

// Destroy deletes the request's session row, if any, and always clears the cookie.
func (sm *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer sm.ClearCookie(w)
	token, ok := sm.Token(r)
	if !ok {
		return nil
	}
	if err := sm.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
