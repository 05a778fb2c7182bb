// Package service holds long-lived background services shared by the HTTP
// server: today the RabbitMQ publisher for reservation events.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

var (
	// ErrBufferFull is returned by Publish when the broker cannot keep up and
	// the in-memory buffer is exhausted.  The event is dropped.
	ErrBufferFull = errors.New("event buffer full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("event publisher closed")
)

const (
	publishAttempts = 3
	publishTimeout  = 5 * time.Second
	dialTimeout     = 5 * time.Second
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type session struct {
	conn io.Closer
	ch   publishChannel
}

// EventPublisher forwards reservation events to a RabbitMQ topic exchange.
// Publish only enqueues; a single worker owns the broker connection, so a slow
// or absent broker never holds up a booking transaction.
type EventPublisher struct {
	cfg        config.QueueConfig
	log        *zap.Logger
	connect    func() (*session, error)
	retryDelay time.Duration

	mu     sync.RWMutex
	closed bool
	events chan queue.ReservationEvent
	done   chan struct{}

	sess *session
}

var _ booking.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher starts the publishing worker.  The broker is dialled
// lazily on the first event and redialled whenever a publish fails.
func NewEventPublisher(cfg config.QueueConfig, log *zap.Logger) *EventPublisher {
	p := newPublisher(cfg, log)
	p.connect = p.dial
	go p.run()
	return p
}

func newPublisher(cfg config.QueueConfig, log *zap.Logger) *EventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	return &EventPublisher{
		cfg:        cfg,
		log:        log.Named("event-publisher"),
		retryDelay: 200 * time.Millisecond,
		events:     make(chan queue.ReservationEvent, size),
		done:       make(chan struct{}),
	}
}

// Publish enqueues ev without blocking.
func (p *EventPublisher) Publish(ev queue.ReservationEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events and waits until the buffered ones have been
// sent or ctx expires.
func (p *EventPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher drain: %w", ctx.Err())
	}
}

func (p *EventPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		p.deliver(ev)
	}
	p.closeSession()
}

func (p *EventPublisher) deliver(ev queue.ReservationEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("event_id", ev.EventID), zap.Error(err))
		return
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}

	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * p.retryDelay)
		}
		if p.sess == nil {
			s, err := p.connect()
			if err != nil {
				p.log.Warn("broker connect failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			p.sess = s
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.sess.ch.PublishWithContext(ctx, p.cfg.Exchange, ev.Type, false, false, msg)
		cancel()
		if err == nil {
			return
		}
		p.log.Warn("publish failed", zap.Int("attempt", attempt), zap.Error(err))
		p.closeSession()
	}
	p.log.Error("reservation event dropped",
		zap.String("event_id", ev.EventID),
		zap.String("type", ev.Type),
		zap.Uint64("reservation_id", ev.ReservationID))
}

func (p *EventPublisher) closeSession() {
	if p.sess == nil {
		return
	}
	_ = p.sess.conn.Close()
	p.sess = nil
}

func (p *EventPublisher) dial() (*session, error) {
	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so the exchange survives broker restarts.
	if err := ch.ExchangeDeclare(p.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	return &session{conn: conn, ch: ch}, nil
}
