//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"vacancy_syncer/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) config(name string) Config {
	return Config{
		URL:        s.amqpURL,
		Exchange:   "exchange-" + name,
		RoutingKey: "listings-" + name,
		QueueName:  "queue-" + name,
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	pub, err := NewRabbitMQ(s.config("connect"), s.logger)
	s.NoError(err)
	s.NotNil(pub)

	s.NoError(pub.Close())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishCreate() {
	cfg := s.config("create")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.Publish(s.ctx, domain.ListingEvent{
		Action:           domain.ListingCreated,
		ListingID:        "8c0f3a52-4d2e-4ab0-9a59-0c4c2bb2c001",
		SourceID:         "src-1",
		ExternalID:       "100",
		Status:           domain.ListingStatusActive,
		ModerationStatus: domain.ModerationPublished,
		Timestamp:        time.Now().UTC().Truncate(time.Millisecond),
	})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)
	s.Equal("create", msg.Type)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received ListingMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(domain.ListingCreated, received.Action)
	s.Equal("100", received.ExternalID)
	s.Equal(domain.ListingStatusActive, received.Status)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishInOrder() {
	cfg := s.config("order")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	for _, action := range []domain.ListingAction{domain.ListingUpdated, domain.ListingClosed, domain.ListingDeleted} {
		s.Require().NoError(pub.Publish(s.ctx, domain.ListingEvent{Action: action, ListingID: "l-1", SourceID: "src-1"}))
	}

	for _, want := range []string{"update", "close", "delete"} {
		msg := s.consumeMessage(cfg)
		s.Require().NotNil(msg)
		s.Equal(want, msg.Type)
	}
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := ch.Get(cfg.QueueName, true)
		s.Require().NoError(err)
		if ok {
			return &msg
		}
		time.Sleep(100 * time.Millisecond)
	}

	s.Fail("Timeout waiting for message")
	return nil
}
