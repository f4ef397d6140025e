// Package queue_publisher publishes audit events to RabbitMQ. Failures are
// logged and never surface to the request that triggered the event.
package queue_publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	q "github.com/iliyamo/bank-assistant/internal/queue"
)

const (
	publishTimeout = 5 * time.Second
	// queueSize bounds the events waiting for the broker. Record drops
	// events beyond it.
	queueSize = 256
)

// Publisher implements queue.Recorder on top of a RabbitMQ broker. One
// worker goroutine drains a bounded buffer over a single connection and
// channel, which are reopened after a failure.
type Publisher struct {
	url string

	mu   sync.Mutex // guards conn and ch
	conn *amqp.Connection
	ch   *amqp.Channel

	sendMu sync.Mutex // guards closed and sends on events
	closed bool
	events chan q.AuditEvent
	done   chan struct{}
}

func NewPublisher(url string) *Publisher { return newPublisher(url, queueSize) }

func newPublisher(url string, size int) *Publisher {
	p := &Publisher{
		url:    url,
		events: make(chan q.AuditEvent, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Record queues ev for publishing without waiting on the broker. When the
// buffer is full or the publisher is closed the event is dropped.
func (p *Publisher) Record(_ context.Context, ev q.AuditEvent) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		log.Warn().Str("event", ev.Type).Str("username", ev.Username).Msg("audit buffer full; event dropped")
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", ev.Type).Str("username", ev.Username).Msg("audit event dropped")
		}
		cancel()
	}
}

// Close stops accepting events, waits for the buffered ones until ctx is
// done and closes the broker connection.
func (p *Publisher) Close(ctx context.Context) error {
	p.sendMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.sendMu.Unlock()

	var err error
	select {
	case <-p.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.mu.Lock()
	p.reset()
	p.mu.Unlock()
	return err
}

// Publish sends ev to the audit queue as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev q.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.AuditQueueName, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// channel returns the open channel, dialing when there is none. Callers hold
// p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(publishTimeout)})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(q.AuditQueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}
