// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Evicter drops cached state that has been idle longer than ttl.
type Evicter interface {
	EvictIdle(now time.Time, ttl time.Duration) int
}

// ScreenEvictionJob releases data screens nobody has touched for ttl.
// It checks at a quarter of ttl, but at least once a minute.
func ScreenEvictionJob(ev Evicter, ttl time.Duration, logger *zap.Logger) Job {
	interval := ttl / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	return Job{
		Name:     "screen-eviction",
		Interval: interval,
		Delayed:  true,
		Run: func(ctx context.Context) error {
			if n := ev.EvictIdle(time.Now(), ttl); n > 0 {
				logger.Info("evicted idle data screens",
					zap.Int("evicted", n),
					zap.Duration("ttl", ttl))
			}
			return nil
		},
	}
}
