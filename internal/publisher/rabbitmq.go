package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"vacancy_syncer/internal/domain"
)

const contentType = "application/json"

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQ publishes listing lifecycle events to a durable direct exchange.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "publisher"),
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ListingMessage is the wire form of a listing event.
type ListingMessage struct {
	Action           domain.ListingAction    `json:"action"`
	ListingID        string                  `json:"listing_id"`
	SourceID         string                  `json:"source_id"`
	ExternalID       string                  `json:"external_id,omitempty"`
	Status           domain.ListingStatus    `json:"status,omitempty"`
	ModerationStatus domain.ModerationStatus `json:"moderation_status,omitempty"`
	Timestamp        time.Time               `json:"timestamp"`
}

func newMessage(event domain.ListingEvent) ListingMessage {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return ListingMessage{
		Action:           event.Action,
		ListingID:        event.ListingID,
		SourceID:         event.SourceID,
		ExternalID:       event.ExternalID,
		Status:           event.Status,
		ModerationStatus: event.ModerationStatus,
		Timestamp:        ts,
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, event domain.ListingEvent) error {
	msg := newMessage(event)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  contentType,
			MessageId:    uuid.NewString(),
			Type:         string(msg.Action),
			Body:         body,
			Timestamp:    msg.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published listing event",
		"listing_id", msg.ListingID,
		"action", msg.Action,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
