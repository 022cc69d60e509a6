package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/elibrary/internal/queue"
)

var (
	// ErrPublisherBusy means the event buffer is full and the event was dropped.
	ErrPublisherBusy = errors.New("catalog event buffer full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("catalog publisher closed")
)

const defaultPublishBuffer = 256

// RabbitPublisher publishes catalog events to the durable catalog queue.
// Publish only enqueues; a background goroutine owns the broker
// connection, dials lazily and re-dials after the broker drops it.  Events
// that cannot be delivered are logged and dropped.
type RabbitPublisher struct {
	url         string
	logger      *slog.Logger
	dialTimeout time.Duration

	events chan []byte
	quit   chan struct{}
	done   chan struct{}
	stop   sync.Once

	// owned by run
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

// NewRabbitPublisher returns a publisher for url and starts its sender.
// No connection is made until the first event.  Call Close to stop it.
func NewRabbitPublisher(url string, logger *slog.Logger) *RabbitPublisher {
	return newRabbitPublisher(url, logger, queue.DialTimeout, defaultPublishBuffer)
}

func newRabbitPublisher(url string, logger *slog.Logger, dialTimeout time.Duration, buffer int) *RabbitPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &RabbitPublisher{
		url:         url,
		logger:      logger,
		dialTimeout: dialTimeout,
		events:      make(chan []byte, buffer),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues ev for delivery and returns at once.  It never waits for
// the broker; a full buffer drops the event with ErrPublisherBusy.
func (p *RabbitPublisher) Publish(_ context.Context, ev queue.CatalogEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	select {
	case <-p.quit:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- body:
		return nil
	default:
		return ErrPublisherBusy
	}
}

func (p *RabbitPublisher) run() {
	defer close(p.done)
	defer p.reset()
	for {
		select {
		case <-p.quit:
			p.drain()
			return
		case body := <-p.events:
			_ = p.send(body)
		}
	}
}

// drain flushes what is still buffered, giving up at the first failure.
func (p *RabbitPublisher) drain() {
	for {
		select {
		case body := <-p.events:
			if err := p.send(body); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (p *RabbitPublisher) send(body []byte) error {
	ch, err := p.channel()
	if err != nil {
		p.logger.Warn("catalog event dropped", slog.String("error", err.Error()))
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.dialTimeout)
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.CatalogQueueName, false, false, pub); err != nil {
		p.reset()
		p.logger.Warn("catalog event dropped", slog.String("error", err.Error()))
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns an open channel, dialling when needed.  After a failed
// dial no new attempt is made for dialTimeout.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if time.Now().Before(p.nextDial) {
		return nil, errors.New("broker unavailable")
	}

	conn, err := queue.Dial(p.url, p.dialTimeout)
	if err != nil {
		p.nextDial = time.Now().Add(p.dialTimeout)
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(queue.CatalogQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.logger.Info("catalog publisher connected", slog.String("queue", queue.CatalogQueueName))
	return ch, nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close stops accepting events, flushes the buffer while the broker keeps
// accepting them and releases the connection.  It is safe to call twice.
func (p *RabbitPublisher) Close() error {
	p.stop.Do(func() { close(p.quit) })
	<-p.done
	return nil
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.CatalogEvent) error { return nil }
