package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/conychips/auth/internal/auth/rbac"
	"github.com/conychips/auth/internal/auth/store"
	"github.com/conychips/auth/pkg/idx"
	"github.com/conychips/auth/pkg/slogx"
)

type RolesService struct {
	Store  store.Store
	Logger *slog.Logger
}

// RoleInfo describes a role and what it grants.
type RoleInfo struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permisos"`
}

// Catalog lists every known role with its permissions.
func (s *RolesService) Catalog() []RoleInfo {
	names := rbac.Roles()
	out := make([]RoleInfo, 0, len(names))
	for _, name := range names {
		out = append(out, RoleInfo{Name: name, Permissions: rbac.Resolve([]string{name})})
	}
	return out
}

// AssignRole grants role to the user. Granting a role the user already has
// succeeds. The change shows up in tokens from the next refresh on.
func (s *RolesService) AssignRole(ctx context.Context, userID, role string) error {
	role = rbac.Normalize(role)
	if !rbac.Known(role) {
		return newError(ErrBadRequest.Code, "unknown role")
	}
	if !idx.Valid(userID) {
		return newError(ErrNotFound.Code, "user not found")
	}

	if err := s.Store.Roles().AssignRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(ErrNotFound.Code, "user not found")
		}
		slogx.FromContextOr(ctx, s.Logger).Error("assign role failed", "user_id", userID, "role", role, "error", err)
		return ErrInternal
	}

	slogx.FromContextOr(ctx, s.Logger).Info("role assigned", "user_id", userID, "role", role)
	return nil
}

// RemoveRole revokes role from the user.
func (s *RolesService) RemoveRole(ctx context.Context, userID, role string) error {
	role = rbac.Normalize(role)
	if !rbac.Known(role) {
		return newError(ErrBadRequest.Code, "unknown role")
	}

	if err := s.Store.Roles().RemoveRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(ErrNotFound.Code, "user does not hold role")
		}
		slogx.FromContextOr(ctx, s.Logger).Error("remove role failed", "user_id", userID, "role", role, "error", err)
		return ErrInternal
	}

	slogx.FromContextOr(ctx, s.Logger).Info("role removed", "user_id", userID, "role", role)
	return nil
}
