package sqlite

import (
	"database/sql"

	"github.com/conychips/auth/internal/auth/store"
)

// txRepos hands out repositories bound to one transaction.
type txRepos struct {
	tx *sql.Tx
}

func (t txRepos) Users() store.Users       { return &usersRepo{db: t.tx} }
func (t txRepos) Sessions() store.Sessions { return &sessionsRepo{db: t.tx} }
func (t txRepos) Roles() store.Roles       { return &rolesRepo{db: t.tx} }

func (t txRepos) Commit() error { return t.tx.Commit() }

// Rollback after Commit returns sql.ErrTxDone, which callers ignore.
func (t txRepos) Rollback() error { return t.tx.Rollback() }
