package correlation

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired correlation state.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

func NewSweeper(store Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{store: store, interval: interval, logger: logger, clock: time.Now}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge and logs the outcome.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.store.Purge(ctx, s.clock())
	if err != nil {
		s.logger.WarnContext(ctx, "correlation purge failed", "error", err)
		return removed
	}
	if removed > 0 {
		s.logger.DebugContext(ctx, "correlation state purged", "removed", removed)
	}
	return removed
}
