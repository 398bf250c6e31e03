package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredTokenPurger is the repository slice the cleanup loop needs
type ExpiredTokenPurger interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges long-expired claim tokens. Tokens are
// kept for a retention window after expiry so support can answer "what
// happened to my code"; after that they are noise.
type CleanupManager struct {
	tokens   ExpiredTokenPurger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(tokens ExpiredTokenPurger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		tokens:   tokens,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
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

	rowsDeleted, err := cm.tokens.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge expired claim tokens", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired claim tokens purged", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
