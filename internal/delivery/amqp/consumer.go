package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqplib "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
	"github.com/Harsh-BH/jobdeck/internal/publisher"
)

const (
	baseReconnectDelay = time.Second
	maxReconnectDelay  = 30 * time.Second
)

var (
	errDeliveriesClosed = errors.New("delivery channel closed")
	errConsumerClosed   = errors.New("consumer closed")
)

// acknowledger is the part of an AMQP channel a JobMessage settles through.
type acknowledger interface {
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
}

// Consumer reads queued jobs from RabbitMQ and hands them to the worker pool
// as JobMessages. Each message is settled by the pool through its Ack/Nack
// callbacks once the job has been processed.
type Consumer struct {
	url    string
	logger *zap.Logger
	jobs   chan<- *domain.JobMessage

	mu      sync.Mutex
	conn    *amqplib.Connection
	channel *amqplib.Channel
	closed  bool
	closeCh chan struct{}
}

// NewConsumer connects to the broker and declares the job queue.
func NewConsumer(url string, jobs chan<- *domain.JobMessage, logger *zap.Logger) (*Consumer, error) {
	c := &Consumer{
		url:     url,
		logger:  logger,
		jobs:    jobs,
		closeCh: make(chan struct{}),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqplib.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := c.setupChannel(conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()
	return nil
}

// setupChannel opens a channel holding one unacknowledged job at a time.
func (c *Consumer) setupChannel(conn *amqplib.Connection) (*amqplib.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}
	if _, err := ch.QueueDeclare(publisher.QueueName, true, false, false, false, publisher.QueueArgs()); err != nil {
		ch.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	return ch, nil
}

// Start consumes until ctx is done or Close is called, reconnecting with
// capped exponential backoff whenever the broker drops the session.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if c.stopping(ctx) {
			return nil
		}
		c.logger.Warn("AMQP consumer lost connection, reconnecting", zap.Error(err))
		if err := c.reconnect(ctx); err != nil {
			return nil
		}
	}
}

func (c *Consumer) stopping(ctx context.Context) bool {
	select {
	case <-c.closeCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// reconnect retries connect until it succeeds or the consumer stops.
func (c *Consumer) reconnect(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		delay := reconnectDelay(attempt)
		c.logger.Info("Reconnect attempt", zap.Int("attempt", attempt+1), zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.closeCh:
			timer.Stop()
			return errConsumerClosed
		case <-timer.C:
		}

		if err := c.connect(); err != nil {
			c.logger.Error("Reconnect failed", zap.Error(err))
			continue
		}
		c.logger.Info("Reconnected to RabbitMQ")
		return nil
	}
}

func reconnectDelay(attempt int) time.Duration {
	if attempt > 5 {
		return maxReconnectDelay
	}
	return min(baseReconnectDelay<<attempt, maxReconnectDelay)
}

// consume runs one session. It returns nil when ctx ends and an error when
// the broker closes the delivery stream.
func (c *Consumer) consume(ctx context.Context) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("no amqp channel")
	}

	deliveries, err := ch.Consume(publisher.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}
	c.logger.Info("AMQP consumer started", zap.String("queue", publisher.QueueName))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			if !c.dispatch(ctx, ch, d.DeliveryTag, d.Body) {
				return nil
			}
		}
	}
}

// dispatch hands one delivery to the pool. Undecodable payloads go straight
// to the dead-letter exchange. It returns false when ctx ended before the
// pool accepted the job, in which case the delivery is requeued.
func (c *Consumer) dispatch(ctx context.Context, ack acknowledger, tag uint64, body []byte) bool {
	queued, err := decodeDelivery(body)
	if err != nil {
		c.logger.Error("Dead-lettering undecodable job", zap.Error(err), zap.Int("body_size", len(body)))
		_ = ack.Nack(tag, false, false)
		return true
	}

	msg := &domain.JobMessage{
		Job:     &queued.Job,
		Content: queued.Content,
		Ack:     func() error { return ack.Ack(tag, false) },
		Nack:    func(requeue bool) error { return ack.Nack(tag, false, requeue) },
	}
	c.logger.Debug("Received job from queue",
		zap.String("job_id", queued.Job.ID),
		zap.String("kind", string(queued.Job.Kind)),
	)

	select {
	case c.jobs <- msg:
		return true
	case <-ctx.Done():
		_ = ack.Nack(tag, false, true)
		return false
	}
}

// Close stops Start and closes the broker connection.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeCh)

	var errs []error
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}

// decodeDelivery parses and checks a broker payload.
func decodeDelivery(body []byte) (domain.QueuedJob, error) {
	var queued domain.QueuedJob
	if err := json.Unmarshal(body, &queued); err != nil {
		return queued, fmt.Errorf("unmarshal job: %w", err)
	}
	if queued.Job.ID == "" {
		return queued, errors.New("job without id")
	}
	switch queued.Job.Kind {
	case domain.KindFAQ, domain.KindFinetune:
	default:
		return queued, fmt.Errorf("job %s has unknown kind %q", queued.Job.ID, queued.Job.Kind)
	}
	return queued, nil
}
