package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/conychips/auth/internal/auth/domain"
)

type usersRepo struct {
	db DBTX
}

const userColumns = `id, email, username, password_hash, active, last_login_at,
	reset_token_hash, reset_expires_at, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, strings.TrimSpace(username))
}

func (r *usersRepo) GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token_hash = ?`, hash)
}

func (r *usersRepo) getOne(ctx context.Context, query string, arg any) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	roles, err := listRoles(ctx, r.db, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		strings.TrimSpace(u.Email),
		strings.TrimSpace(u.Username),
		u.PasswordHash,
		u.Active,
		u.CreatedAt.UTC(),
		u.CreatedAt.UTC(),
	)
	if err != nil {
		return mapConstraint(err)
	}

	for _, role := range u.Roles {
		if err := assignRole(ctx, r.db, u.ID, role, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), userID,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), userID,
	))
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), userID,
	))
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID, hash string, expiresAt time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`,
		hash, expiresAt.UTC(), time.Now().UTC(), userID,
	))
}

func (r *usersRepo) ConsumeResetToken(ctx context.Context, userID, hash string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users
		    SET reset_token_hash = NULL, reset_expires_at = NULL, updated_at = ?
		  WHERE id = ? AND reset_token_hash = ? AND reset_expires_at > ?`,
		now.UTC(), userID, hash, now.UTC(),
	))
}

func (r *usersRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET reset_token_hash = NULL, reset_expires_at = NULL
		  WHERE reset_token_hash IS NOT NULL AND reset_expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		lastLogin  sql.NullTime
		resetHash  sql.NullString
		resetUntil sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Active,
		&lastLogin,
		&resetHash,
		&resetUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.LastLoginAt = mapNullTimePtr(lastLogin)
	u.ResetTokenHash = mapNullString(resetHash)
	u.ResetExpiresAt = mapNullTimePtr(resetUntil)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}
