package messenger

import (
	"context"

	"github.com/taskdesk/core/internal/infrastructure/logger"
)

// LogMessenger writes outbound messages to the log instead of a broker.
// Used when no AMQP URL is configured, and in one-shot CLI runs.
type LogMessenger struct {
	logger *logger.Logger
}

// NewLogMessenger creates a log-backed messenger
func NewLogMessenger(log *logger.Logger) *LogMessenger {
	return &LogMessenger{logger: log.WithComponent("messenger")}
}

// Send logs the message and reports success
func (m *LogMessenger) Send(_ context.Context, chatID int64, text string) error {
	m.logger.Infow("outbound message", "chat_id", chatID, "text", text)
	return nil
}
