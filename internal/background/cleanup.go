package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredEntrySweeper deletes store entries whose TTL has passed
type ExpiredEntrySweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges expired entries from a server-side store
type CleanupManager struct {
	sweeper  ExpiredEntrySweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(sweeper ExpiredEntrySweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every interval until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := cm.sweeper.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge expired store entries", slog.Any("error", err))
		return
	}

	if deleted > 0 {
		cm.logger.Info("expired store entries purged", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
