// Package auth holds the bearer token issued by the backend at login.
//
// Every store is safe for concurrent use. The HTTP client reads the token at
// call time, so a login or logout takes effect on the next request.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store persists the current bearer token. Token returns "" when nobody is
// logged in or the stored token has expired.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type memoryStore struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() Store {
	return &memoryStore{now: time.Now}
}

func (s *memoryStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if Expired(s.token, s.now()) {
		return "", nil
	}
	return s.token, nil
}

func (s *memoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// The backend owns verification; the portal only needs to know when to stop
// sending a token. ok is false for opaque tokens or tokens without exp.
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether token carries an exp claim in the past.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && !now.Before(exp)
}
