package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

type sent struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeBroker struct {
	mu       sync.Mutex
	sent     []sent
	fail     int // publishes to fail before succeeding
	closes   int
	connects int
}

func (b *fakeBroker) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail > 0 {
		b.fail--
		return errors.New("channel closed")
	}
	b.sent = append(b.sent, sent{exchange: exchange, key: key, msg: msg})
	return nil
}

func (b *fakeBroker) Close() error {
	b.mu.Lock()
	b.closes++
	b.mu.Unlock()
	return nil
}

func (b *fakeBroker) connect() (*session, error) {
	b.mu.Lock()
	b.connects++
	b.mu.Unlock()
	return &session{conn: b, ch: b}, nil
}

func testConfig(buffer int) config.QueueConfig {
	return config.QueueConfig{Enabled: true, Exchange: "reservation.events", BufferSize: buffer}
}

func event(typ string, id uint64) queue.ReservationEvent {
	ev := queue.NewReservationEvent(typ)
	ev.ReservationID = id
	return ev
}

func closeWithin(t *testing.T, p *EventPublisher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func TestPublisher_DeliversToExchange(t *testing.T) {
	b := &fakeBroker{}
	p := newPublisher(testConfig(8), zap.NewNop())
	p.connect = b.connect
	go p.run()

	require.NoError(t, p.Publish(event(queue.ReservationCreated, 1)))
	require.NoError(t, p.Publish(event(queue.ReservationCancelled, 1)))
	closeWithin(t, p)

	require.Len(t, b.sent, 2)
	assert.Equal(t, "reservation.events", b.sent[0].exchange)
	assert.Equal(t, queue.ReservationCreated, b.sent[0].key)
	assert.Equal(t, queue.ReservationCancelled, b.sent[1].key)
	assert.Equal(t, amqp.Persistent, b.sent[0].msg.DeliveryMode)
	assert.Equal(t, "application/json", b.sent[0].msg.ContentType)

	var got queue.ReservationEvent
	require.NoError(t, json.Unmarshal(b.sent[0].msg.Body, &got))
	assert.Equal(t, uint64(1), got.ReservationID)
	assert.Equal(t, got.EventID, b.sent[0].msg.MessageId)

	assert.Equal(t, 1, b.connects, "connection is reused")
	assert.Equal(t, 1, b.closes, "connection closed on shutdown")
}

func TestPublisher_BufferFull(t *testing.T) {
	b := &fakeBroker{}
	p := newPublisher(testConfig(1), zap.NewNop())
	p.connect = b.connect

	require.NoError(t, p.Publish(event(queue.ReservationCreated, 1)))
	assert.ErrorIs(t, p.Publish(event(queue.ReservationCreated, 2)), ErrBufferFull)

	go p.run()
	closeWithin(t, p)
	require.Len(t, b.sent, 1)
}

func TestPublisher_RejectsAfterClose(t *testing.T) {
	p := newPublisher(testConfig(1), zap.NewNop())
	p.connect = (&fakeBroker{}).connect
	go p.run()
	closeWithin(t, p)

	assert.ErrorIs(t, p.Publish(event(queue.ReservationCreated, 1)), ErrPublisherClosed)
	closeWithin(t, p)
}

func TestPublisher_ReconnectsAfterFailure(t *testing.T) {
	b := &fakeBroker{fail: 1}
	p := newPublisher(testConfig(4), zap.NewNop())
	p.connect = b.connect
	p.retryDelay = time.Millisecond
	go p.run()

	require.NoError(t, p.Publish(event(queue.ReservationUpdated, 9)))
	closeWithin(t, p)

	require.Len(t, b.sent, 1)
	assert.Equal(t, 2, b.connects)
}

func TestPublisher_DropsWhenBrokerUnreachable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := newPublisher(testConfig(4), zap.New(core))
	p.retryDelay = time.Millisecond
	attempts := 0
	p.connect = func() (*session, error) {
		attempts++
		return nil, errors.New("connection refused")
	}
	go p.run()

	require.NoError(t, p.Publish(event(queue.ReservationCreated, 5)))
	closeWithin(t, p)

	assert.Equal(t, publishAttempts, attempts)
	dropped := logs.FilterMessage("reservation event dropped").All()
	require.Len(t, dropped, 1)
	assert.EqualValues(t, 5, dropped[0].ContextMap()["reservation_id"])
}
