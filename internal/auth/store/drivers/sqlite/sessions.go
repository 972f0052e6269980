package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/conychips/auth/internal/auth/domain"
)

type sessionsRepo struct {
	db DBTX
}

const sessionColumns = `id, user_id, refresh_jti, access_jti, app_token_id, device_id,
	expires_at, closed_at, created_at`

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.UserID,
		s.RefreshJTI,
		s.AccessJTI,
		s.AppTokenID,
		s.DeviceID,
		s.ExpiresAt.UTC(),
		mapOptionalTime(s.ClosedAt),
		s.CreatedAt.UTC(),
	)
	return mapConstraint(mapForeignKey(err))
}

func (r *sessionsRepo) GetSessionByRefreshJTI(ctx context.Context, jti string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_jti = ?`, jti)

	s, err := scanSession(row)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) CloseSession(ctx context.Context, refreshJTI string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE sessions SET closed_at = ? WHERE refresh_jti = ? AND closed_at IS NULL`,
		at.UTC(), refreshJTI,
	))
}

func (r *sessionsRepo) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		  WHERE user_id = ? AND closed_at IS NULL AND expires_at > ?
		  ORDER BY created_at DESC`,
		userID, now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) DeleteStaleSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? OR closed_at <= ?`,
		cutoff.UTC(), cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s      domain.Session
		closed sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.RefreshJTI,
		&s.AccessJTI,
		&s.AppTokenID,
		&s.DeviceID,
		&s.ExpiresAt,
		&closed,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, err
	}
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.ClosedAt = mapNullTimePtr(closed)
	return s, nil
}
