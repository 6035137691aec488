package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tooldeck/internal/infra/browser"
	"tooldeck/internal/infra/telemetry"
)

// runIdleSweep closes the browser once it has sat unused for longer than
// maxIdle. Closing is cheap and the session relaunches on the next browser
// tool call, so the sweep only trades a cold start for freed memory.
func runIdleSweep(ctx context.Context, session *browser.Session, interval, maxIdle time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if session.CloseIfIdleFor(maxIdle) {
				logger.Info("idle browser closed",
					telemetry.EventField(telemetry.EventIdleReap),
					zap.Duration("max_idle", maxIdle),
				)
			}
		}
	}
}
