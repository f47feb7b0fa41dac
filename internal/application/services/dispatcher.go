package services

import (
	"context"
	"time"

	"github.com/taskdesk/core/internal/infrastructure/logger"
	"github.com/taskdesk/core/internal/infrastructure/metrics"
	"github.com/taskdesk/core/internal/ports"
)

// NotificationDispatcher pushes due notifications through the outbound
// messenger. A notification is marked sent only after a successful send;
// failed sends stay pending and retry on the next pass, so the channel
// sees at-least-once delivery.
type NotificationDispatcher struct {
	notifications ports.NotificationRepository
	messenger     ports.Messenger
	logger        *logger.Logger
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(
	notifications ports.NotificationRepository,
	messenger ports.Messenger,
	log *logger.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		messenger:     messenger,
		logger:        log.WithComponent("dispatcher"),
	}
}

// Dispatch sends every due notification, one at a time. A failed send is
// logged and skipped; it does not stop the batch.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, now time.Time) (int, error) {
	pending, err := d.notifications.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, p := range pending {
		if err := d.messenger.Send(ctx, p.ChatID, p.Message); err != nil {
			metrics.NotificationsDispatched.WithLabelValues(string(p.Type), "failed").Inc()
			d.logger.WithError(err).Warnw("failed to send notification",
				"notification_id", p.ID,
				"chat_id", p.ChatID,
			)
			continue
		}

		if err := d.notifications.MarkSent(ctx, p.ID, time.Now().UTC()); err != nil {
			d.logger.WithError(err).Errorw("failed to mark notification sent",
				"notification_id", p.ID,
			)
			continue
		}

		metrics.NotificationsDispatched.WithLabelValues(string(p.Type), "sent").Inc()
		sent++
	}

	if sent > 0 {
		d.logger.Infow("notifications dispatched", "sent", sent, "due", len(pending))
	}

	return sent, nil
}
