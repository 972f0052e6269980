package authsdk

import (
	"context"
	"net/http"
)

// Me fetches the account behind the session.
func (s *Session) Me(ctx context.Context) (*User, error) {
	if err := s.requirePermission("profile:read"); err != nil {
		return nil, err
	}

	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.doAuthRequest(ctx, http.MethodGet, "/v1/me", token, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		User User `json:"user"`
	}
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout ends this session. Both tokens are revoked; the session must not
// be used afterwards.
func (s *Session) Logout(ctx context.Context) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout", token, map[string]string{
		"refresh_token": s.RefreshToken(),
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// LogoutAll ends every session of the account, this one included, and
// returns how many were closed.
func (s *Session) LogoutAll(ctx context.Context) (int, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout-all", token, nil)
	if err != nil {
		return 0, err
	}

	var out LogoutAllResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.SessionsClosed, nil
}
