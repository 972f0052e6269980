package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/conychips/auth/internal/auth/store"
)

// DefaultSessionRetention keeps closed or expired session rows around for a
// while so recent logins can still be inspected.
const DefaultSessionRetention = 24 * time.Hour

// HousekeepingService periodically deletes stale session rows and lapsed
// password reset tokens.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:     store,
		Logger:    logger,
		Interval:  interval,
		Retention: DefaultSessionRetention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// CleanupResult counts what one pass removed.
type CleanupResult struct {
	Sessions    int64
	ResetTokens int64
}

// Cleanup runs a single pass. Each step is independent; a failure in one is
// logged and does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) CleanupResult {
	now := s.now().UTC()
	var res CleanupResult

	n, err := s.Store.Sessions().DeleteStaleSessions(ctx, now.Add(-s.Retention))
	if err != nil {
		s.Logger.Error("failed to delete stale sessions", "error", err)
	} else {
		res.Sessions = n
	}

	n, err = s.Store.Users().ClearExpiredResetTokens(ctx, now)
	if err != nil {
		s.Logger.Error("failed to clear expired reset tokens", "error", err)
	} else {
		res.ResetTokens = n
	}

	s.Logger.Info("housekeeping cleanup completed", "sessions", res.Sessions, "reset_tokens", res.ResetTokens)
	return res
}
