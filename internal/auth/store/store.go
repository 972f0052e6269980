package store

import (
	"context"
	"errors"
	"time"

	"github.com/conychips/auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Repos are the repositories shared by a Store and its transactions.
type Repos interface {
	Users() Users
	Sessions() Sessions
	Roles() Roles
}

// Store is the root data access interface implemented by the drivers.
type Store interface {
	Repos

	ApplyMigrations() error

	// Begin starts a read/write transaction. The caller MUST call Commit()
	// or Rollback() on the returned Tx.
	Begin(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. A nil return commits,
	// anything else rolls back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx exposes the repos bound to one transaction.
type Tx interface {
	Repos
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user with its roles loaded.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used at login. Matching is case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByResetTokenHash finds the user with an outstanding reset token.
	GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error)

	// CreateUser inserts the user and its roles. Returns ErrAlreadyExists on
	// an email or username clash.
	CreateUser(ctx context.Context, u domain.User) error

	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdatePasswordHash sets the password_hash (bcrypt) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	SetActive(ctx context.Context, userID string, active bool) error

	// SetResetToken records a pending password reset, replacing any earlier one.
	SetResetToken(ctx context.Context, userID, hash string, expiresAt time.Time) error

	// ConsumeResetToken clears the reset token only if it still equals hash
	// and has not expired at now. ErrNotFound when another caller got there
	// first or the token lapsed.
	ConsumeResetToken(ctx context.Context, userID, hash string, now time.Time) error

	// ClearExpiredResetTokens is housekeeping.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByRefreshJTI(ctx context.Context, jti string) (domain.Session, error)

	// CloseSession closes the open session for the refresh jti. ErrNotFound
	// when no open row matched, which is how a lost refresh race surfaces.
	CloseSession(ctx context.Context, refreshJTI string, at time.Time) error

	// ListActiveSessions returns the open, unexpired sessions of a user,
	// newest first.
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// DeleteStaleSessions removes rows closed or expired before cutoff.
	DeleteStaleSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

type Roles interface {
	ListUserRoles(ctx context.Context, userID string) ([]string, error)

	// AssignRole is idempotent.
	AssignRole(ctx context.Context, userID, role string) error

	// RemoveRole returns ErrNotFound when the user did not hold the role.
	RemoveRole(ctx context.Context, userID, role string) error
}
