package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// QueueName is the durable queue catalog events are routed to.
const QueueName = "catalog.events"

const (
	dialTimeout    = 2 * time.Second
	redialCooldown = 5 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while a recent connection
// attempt is still cooling down.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// Publisher publishes CatalogEvents to RabbitMQ over one shared connection
// and channel. A broken connection is dropped and redialed lazily on the
// next Publish, at most once per redialCooldown.
type Publisher struct {
	url string
	log *zap.Logger

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	nextDialAt time.Time
	now        func() time.Time
}

// NewPublisher returns a Publisher for the broker at url. No connection is
// made until the first Publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log, now: time.Now}
}

// Publish sends ev as a persistent JSON message. Errors are returned for the
// caller to log; Publish itself never logs a failure.
func (p *Publisher) Publish(ctx context.Context, ev CatalogEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// channel returns the open channel, dialing when there is none. Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.nextDialAt) {
		return nil, ErrBrokerUnavailable
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		p.nextDialAt = p.now().Add(redialCooldown)
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.nextDialAt = p.now().Add(redialCooldown)
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		p.nextDialAt = p.now().Add(redialCooldown)
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Info("rabbitmq publisher connected", zap.String("queue", QueueName))
	return ch, nil
}

// reset drops the current connection. Callers hold mu.
func (p *Publisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the shared connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// Discard drops every event. It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, CatalogEvent) error { return nil }
