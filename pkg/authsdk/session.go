package authsdk

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// refreshBuffer is how close to expiry an access token is rotated.
const refreshBuffer = 30 * time.Second

// Session holds the tokens of one login and refreshes them on demand.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         User
	permissions  []string
}

func newSession(client *SDKClient, resp *SessionResponse) *Session {
	s := &Session{client: client}
	s.apply(resp)
	return s
}

// apply stores a login or refresh response. Callers hold mu for writing,
// except during construction.
func (s *Session) apply(resp *SessionResponse) {
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	s.user = resp.User
	s.permissions = resp.Permissions
}

// AccessToken returns the current access token without refreshing it.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token. Persist it to resume the
// session with AuthenticateWithRefreshToken.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns the account as of the last login or refresh.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// HasPermission reports whether the session holds perm, directly or
// through the wildcard.
func (s *Session) HasPermission(perm string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.permissions, "*") || slices.Contains(s.permissions, perm)
}

// Refresh rotates the tokens now.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	resp, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	s.apply(resp)
	return nil
}

// getValidToken returns an access token with at least refreshBuffer left,
// rotating the tokens first when needed.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Until(s.expiresAt) > refreshBuffer {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Until(s.expiresAt) > refreshBuffer {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

func (s *Session) requirePermission(perm string) error {
	if !s.client.CheckPermissions || s.HasPermission(perm) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingPermission, perm)
}
