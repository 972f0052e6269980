package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conychips/auth/internal/auth/domain"
	"github.com/conychips/auth/pkg/slogx"
)

// Notifier delivers password reset tokens to their owner.
type Notifier interface {
	SendPasswordReset(ctx context.Context, user domain.User, token string, expiresAt time.Time) error
}

// LogNotifier writes reset tokens to the log. It stands in for a mail
// gateway in development; the token is only emitted at debug level.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) SendPasswordReset(ctx context.Context, user domain.User, token string, expiresAt time.Time) error {
	log := slogx.FromContextOr(ctx, n.Logger)
	log.Info("password reset token issued", "user_id", user.ID, "expires_at", expiresAt)
	log.Debug("password reset token", "user_id", user.ID, "email", user.Email, "token", token)
	return nil
}
