package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/conychips/auth/internal/auth/rbac"
	"github.com/stretchr/testify/require"
)

func TestRolesService(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	u := env.register(t, "ana@example.com", "ana")

	t.Run("assign is idempotent and normalized", func(t *testing.T) {
		require.NoError(t, env.Roles.AssignRole(ctx, u.ID, " mesero "))
		require.NoError(t, env.Roles.AssignRole(ctx, u.ID, rbac.Waiter))

		roles, err := env.Store.Roles().ListUserRoles(ctx, u.ID)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{rbac.Customer, rbac.Waiter}, roles)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, env.Roles.RemoveRole(ctx, u.ID, rbac.Waiter))
		requireCode(t, env.Roles.RemoveRole(ctx, u.ID, rbac.Waiter), http.StatusNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		requireCode(t, env.Roles.AssignRole(ctx, u.ID, "PIRATA"), http.StatusBadRequest)
		requireCode(t, env.Roles.RemoveRole(ctx, u.ID, "PIRATA"), http.StatusBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		requireCode(t, env.Roles.AssignRole(ctx, "missing", rbac.Admin), http.StatusNotFound)
	})

	t.Run("catalog", func(t *testing.T) {
		catalog := env.Roles.Catalog()
		require.Len(t, catalog, len(rbac.Roles()))
		for _, r := range catalog {
			if r.Name == rbac.SuperAdmin {
				require.Equal(t, []string{rbac.Wildcard}, r.Permissions)
			}
		}
	})
}

func TestUserProfile(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	u := env.register(t, "ana@example.com", "ana")
	require.NoError(t, env.Roles.AssignRole(ctx, u.ID, rbac.SuperAdmin))

	p, err := env.Users.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", p.Email)
	require.Equal(t, []string{rbac.Wildcard}, p.Permissions)

	_, err = env.Users.Profile(ctx, "missing")
	requireCode(t, err, http.StatusNotFound)
}
