package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/infrastructure/metrics"
)

// Pipeline runs one maintenance pass: sweep stale tasks to overdue,
// schedule missing reminders, then push due notifications out. Phases
// run in that order so a reminder created this pass with a past fire
// point goes out in the same tick. A phase failure is logged and the
// remaining phases still run.
type Pipeline struct {
	sweeper    *OverdueSweeper
	scheduler  *ReminderScheduler
	dispatcher *NotificationDispatcher
	logger     *logger.Logger
}

// NewPipeline creates a new maintenance pipeline
func NewPipeline(
	sweeper *OverdueSweeper,
	scheduler *ReminderScheduler,
	dispatcher *NotificationDispatcher,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		sweeper:    sweeper,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		logger:     log.WithComponent("pipeline"),
	}
}

// RunTick executes one full pass at the given instant
func (p *Pipeline) RunTick(ctx context.Context, now time.Time) {
	p.phase("sweep", func() error {
		_, err := p.sweeper.Sweep(ctx, now)
		return err
	})
	p.phase("schedule", func() error {
		return p.scheduler.ScheduleReminders(ctx, now)
	})
	p.phase("dispatch", func() error {
		_, err := p.dispatcher.Dispatch(ctx, now)
		return err
	})
}

func (p *Pipeline) phase(name string, fn func() error) {
	timer := prometheus.NewTimer(metrics.TickDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	if err := fn(); err != nil {
		p.logger.WithError(err).Errorw("pipeline phase failed", "phase", name)
	}
}
