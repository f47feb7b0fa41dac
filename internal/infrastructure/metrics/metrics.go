package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksSwept counts tasks transitioned to overdue by the sweeper.
	TasksSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskdesk_tasks_swept_total",
			Help: "Total number of tasks transitioned to overdue by the sweeper",
		},
	)

	// RemindersScheduled counts reminder notifications created.
	RemindersScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskdesk_reminders_scheduled_total",
			Help: "Total number of reminder notifications created",
		},
	)

	// RemindersSkipped counts reminder candidates skipped, by reason.
	RemindersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdesk_reminders_skipped_total",
			Help: "Total number of reminder candidates skipped",
		},
		[]string{"reason"}, // exists, past_due, no_recipient
	)

	// NotificationsDispatched counts delivery attempts by outcome.
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdesk_notifications_dispatched_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"type", "outcome"}, // outcome: sent, failed
	)

	// TickDuration observes the duration of one full worker tick.
	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskdesk_worker_tick_duration_seconds",
			Help:    "Duration of one worker tick phase",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"phase"}, // sweep, schedule, dispatch
	)

	// HTTPRequestDuration observes HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)
