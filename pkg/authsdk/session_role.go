package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListRoles returns the role catalog with the permissions of each role.
func (s *Session) ListRoles(ctx context.Context) ([]Role, error) {
	if err := s.requirePermission("users:read"); err != nil {
		return nil, err
	}

	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.doAuthRequest(ctx, http.MethodGet, "/v1/roles", token, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Roles []Role `json:"roles"`
	}
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Roles, nil
}

// AssignRole grants role to a user.
func (s *Session) AssignRole(ctx context.Context, userID, role string) error {
	return s.changeRole(ctx, http.MethodPost, userID, role)
}

// RemoveRole takes role away from a user.
func (s *Session) RemoveRole(ctx context.Context, userID, role string) error {
	return s.changeRole(ctx, http.MethodDelete, userID, role)
}

func (s *Session) changeRole(ctx context.Context, method, userID, role string) error {
	if err := s.requirePermission("users:manage_roles"); err != nil {
		return err
	}

	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	path := "/v1/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(role)
	resp, err := s.client.doAuthRequest(ctx, method, path, token, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
