package sqlite

import (
	"context"
	"time"
)

type rolesRepo struct {
	db DBTX
}

func (r *rolesRepo) ListUserRoles(ctx context.Context, userID string) ([]string, error) {
	return listRoles(ctx, r.db, userID)
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, role string) error {
	return assignRole(ctx, r.db, userID, role, time.Now().UTC())
}

func (r *rolesRepo) RemoveRole(ctx context.Context, userID, role string) error {
	return expectOne(r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`,
		userID, role,
	))
}

func listRoles(ctx context.Context, db DBTX, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = ? ORDER BY created_at, role`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func assignRole(ctx context.Context, db DBTX, userID, role string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role, at,
	)
	return mapForeignKey(err)
}
