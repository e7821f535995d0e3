package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/ticket-desk/internal/service"
)

// Sweeper evicts idle workspaces.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartWorkspaceJanitor sweeps idle workspaces every interval until ctx is
// cancelled. The returned channel closes when the loop exits.
func StartWorkspaceJanitor(ctx context.Context, sweeper Sweeper, interval, idle time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if sweeper == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debug("workspace janitor stopped")
				return
			case <-ticker.C:
				if n := sweeper.Sweep(idle); n > 0 {
					logger.Debug("workspace janitor swept", zap.Int("evicted", n))
				}
			}
		}
	}()
	return done
}
