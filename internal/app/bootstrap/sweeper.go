package bootstrap

import (
	"context"
	"time"

	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// Evicter drops idle in-memory state and reports how much went.
type Evicter interface {
	EvictIdle(idle time.Duration) int
}

// EvicterFunc adapts a plain function, e.g. RateLimiter.Sweep.
type EvicterFunc func(idle time.Duration) int

// EvictIdle calls f.
func (f EvicterFunc) EvictIdle(idle time.Duration) int { return f(idle) }

// RunSweeper evicts idle sessions and limiter buckets every interval until
// ctx is cancelled.
func RunSweeper(ctx context.Context, interval, idle time.Duration, logger *logging.Logger, targets ...Evicter) {
	if interval <= 0 || idle <= 0 || len(targets) == 0 {
		return
	}
	if logger == nil {
		logger = logging.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := 0
			for _, t := range targets {
				evicted += t.EvictIdle(idle)
			}
			if evicted > 0 {
				logger.Debug("evicted idle state", "count", evicted)
			}
		}
	}
}
