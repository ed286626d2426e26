package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacancy_syncer/internal/domain"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	calls  []publishCall
	err    error
	closed bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.calls = append(c.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func newTestPublisher(ch *fakeChannel) *RabbitMQ {
	return &RabbitMQ{
		channel:    ch,
		exchange:   "vacancy_syncer",
		routingKey: "listings",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRabbitMQ_Publish(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(ch)
	ts := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), domain.ListingEvent{
		Action:           domain.ListingCreated,
		ListingID:        "l-1",
		SourceID:         "src-1",
		ExternalID:       "100",
		Status:           domain.ListingStatusDraft,
		ModerationStatus: domain.ModerationDraft,
		Timestamp:        ts,
	})

	require.NoError(t, err)
	require.Len(t, ch.calls, 1)

	call := ch.calls[0]
	assert.Equal(t, "vacancy_syncer", call.exchange)
	assert.Equal(t, "listings", call.key)
	assert.Equal(t, uint8(amqp.Persistent), call.msg.DeliveryMode)
	assert.Equal(t, "application/json", call.msg.ContentType)
	assert.Equal(t, "create", call.msg.Type)
	assert.NotEmpty(t, call.msg.MessageId)
	assert.Equal(t, ts, call.msg.Timestamp)

	var received ListingMessage
	require.NoError(t, json.Unmarshal(call.msg.Body, &received))
	assert.Equal(t, domain.ListingCreated, received.Action)
	assert.Equal(t, "l-1", received.ListingID)
	assert.Equal(t, "100", received.ExternalID)
	assert.Equal(t, domain.ModerationDraft, received.ModerationStatus)
	assert.True(t, ts.Equal(received.Timestamp))
}

func TestRabbitMQ_PublishDeleteOmitsEmptyFields(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(ch)

	err := pub.Publish(context.Background(), domain.ListingEvent{
		Action:    domain.ListingDeleted,
		ListingID: "l-1",
		SourceID:  "src-1",
	})

	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(ch.calls[0].msg.Body, &raw))
	assert.NotContains(t, raw, "external_id")
	assert.NotContains(t, raw, "status")
	assert.Contains(t, raw, "timestamp")
}

func TestRabbitMQ_PublishError(t *testing.T) {
	pub := newTestPublisher(&fakeChannel{err: amqp.ErrClosed})

	err := pub.Publish(context.Background(), domain.ListingEvent{Action: domain.ListingClosed, ListingID: "l-1"})

	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestRabbitMQ_Close(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(ch)

	assert.NoError(t, pub.Close())
	assert.True(t, ch.closed)
}
