package worker

import (
	"context"
	"time"

	"github.com/taskdesk/core/internal/infrastructure/logger"
)

// TickFunc is one maintenance pass at the given instant
type TickFunc func(ctx context.Context, now time.Time)

// Runner drives a TickFunc on a fixed interval. With a lock configured,
// only one instance across the deployment executes each tick; the
// others skip and wait for the next one.
type Runner struct {
	interval time.Duration
	tick     TickFunc
	lock     *TickLock
	logger   *logger.Logger
}

// NewRunner creates a periodic runner. Pass a nil lock to run unlocked.
func NewRunner(interval time.Duration, tick TickFunc, lock *TickLock, log *logger.Logger) *Runner {
	return &Runner{
		interval: interval,
		tick:     tick,
		lock:     lock,
		logger:   log.WithComponent("worker"),
	}
}

// Run executes one tick immediately, then on every interval until the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Infow("worker started", "interval", r.interval)

	r.runTick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

func (r *Runner) runTick(ctx context.Context) {
	if r.lock != nil {
		ok, err := r.lock.Acquire(ctx)
		if err != nil {
			r.logger.WithError(err).Error("failed to acquire tick lock")
			return
		}
		if !ok {
			r.logger.Debug("tick lock held elsewhere, skipping")
			return
		}
		defer func() {
			if err := r.lock.Release(ctx); err != nil {
				r.logger.WithError(err).Warn("failed to release tick lock")
			}
		}()
	}

	r.tick(ctx, time.Now().UTC())
}
