package recording

import (
	"context"
	"log/slog"
	"time"
)

// StartReaper runs a background goroutine that periodically drops
// sessions whose client went away without completing the lifecycle.
func StartReaper(ctx context.Context, m *Manager, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if expired := m.ExpireIdle(ttl); expired > 0 {
					slog.Info("Session reaper removed idle sessions",
						"expired", expired, "remaining", m.Count())
				}
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
