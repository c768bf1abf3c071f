package jobs

import (
	"context"
	"log/slog"
	"time"
)

type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// StartSessionSweepJob deletes expired sessions every interval. A non-positive
// interval leaves it disabled, which is the default; lazy expiry on validate
// stays authoritative either way. The returned channel closes once the job stops.
func StartSessionSweepJob(ctx context.Context, interval, timeout time.Duration, sweeper Sweeper, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 || sweeper == nil {
		close(done)
		return done
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				removed, err := sweeper.Sweep(tickCtx)
				cancel()
				if err != nil {
					logger.Error("session sweep failed", "err", err)
					continue
				}
				if removed > 0 {
					logger.Info("session sweep removed expired sessions", "count", removed)
				}
			}
		}
	}()
	return done
}
