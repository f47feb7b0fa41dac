package messenger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/taskdesk/core/internal/infrastructure/config"
)

// outboundMessage is the payload the delivery gateway consumes
type outboundMessage struct {
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// AMQPMessenger publishes outbound messages to a topic exchange. The
// actual chat delivery is handled by a downstream consumer.
type AMQPMessenger struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
}

// NewAMQPMessenger connects and declares the outbound exchange
func NewAMQPMessenger(cfg config.AMQPConfig) (*AMQPMessenger, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPMessenger{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

// Send publishes a persistent JSON message for the given chat
func (m *AMQPMessenger) Send(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(outboundMessage{
		ChatID: chatID,
		Text:   text,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = m.channel.PublishWithContext(ctx,
		m.exchange,
		m.routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// IsConnected reports whether the underlying connection is still alive
func (m *AMQPMessenger) IsConnected() bool {
	return m.conn != nil && m.channel != nil && !m.conn.IsClosed()
}

// Close releases the channel and connection
func (m *AMQPMessenger) Close() {
	if m.channel != nil {
		_ = m.channel.Close()
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}
