package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

const (
	exchangeName = "jobdeck.direct"
	routingKey   = "process"

	// QueueName is the queue workers consume jobs from.
	QueueName = "job_tasks"

	// DeadLetterExchange receives rejected deliveries.
	DeadLetterExchange = "jobdeck.dlx"
	deadLetterQueue    = "dead_letter_queue"

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 30 * time.Second
	publishTimeout    = 5 * time.Second
)

var errNotConnected = errors.New("rabbitmq: not connected")

// Publisher hands submitted jobs to the workers.
type Publisher interface {
	Publish(ctx context.Context, msg *domain.QueuedJob) error
	Close() error
}

type rabbitPublisher struct {
	url    string
	logger *zap.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	done    chan struct{}
	closed  bool
}

// NewRabbitMQPublisher connects, declares the job topology and keeps the
// connection alive in the background until Close.
func NewRabbitMQPublisher(url string, logger *zap.Logger) (Publisher, error) {
	p := &rabbitPublisher{url: url, logger: logger, done: make(chan struct{})}
	if err := p.connect(); err != nil {
		return nil, err
	}
	go p.keepAlive()
	return p, nil
}

func (p *rabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}
	if err := declareTopology(ch); err != nil {
		conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.channel = ch
	p.mu.Unlock()

	p.logger.Info("RabbitMQ publisher initialized",
		zap.String("exchange", exchangeName),
		zap.String("queue", QueueName),
	)
	return nil
}

// declareTopology sets up the job exchange and queue plus the dead-letter
// pair that receives jobs workers reject.
func declareTopology(ch *amqp.Channel) error {
	for _, ex := range []string{exchangeName, DeadLetterExchange} {
		if err := ch.ExchangeDeclare(ex, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: declare exchange %s: %w", ex, err)
		}
	}
	queues := []struct {
		name, key, exchange string
		args                amqp.Table
	}{
		{deadLetterQueue, "", DeadLetterExchange, nil},
		{QueueName, routingKey, exchangeName, QueueArgs()},
	}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("rabbitmq: declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.key, q.exchange, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: bind queue %s: %w", q.name, err)
		}
	}
	return nil
}

// keepAlive waits for the connection to drop and re-dials with doubling
// delays until it succeeds or the publisher is closed.
func (p *rabbitPublisher) keepAlive() {
	for {
		p.mu.RLock()
		conn := p.conn
		p.mu.RUnlock()

		select {
		case <-p.done:
			return
		case reason, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1)):
			if !ok {
				return
			}
			p.logger.Warn("RabbitMQ connection lost, reconnecting", zap.Error(reason))
		}

		p.mu.Lock()
		p.channel = nil
		p.mu.Unlock()

		for delay := reconnectDelay; ; delay = min(delay*2, maxReconnectDelay) {
			select {
			case <-p.done:
				return
			case <-time.After(delay):
			}
			if err := p.connect(); err != nil {
				p.logger.Warn("RabbitMQ reconnect failed", zap.Error(err), zap.Duration("retry_in", delay))
				continue
			}
			p.logger.Info("RabbitMQ reconnected")
			break
		}
	}
}

// Publish sends msg persistently and waits for the broker's confirm.
func (p *rabbitPublisher) Publish(ctx context.Context, msg *domain.QueuedJob) error {
	pub, err := newPublishing(msg, time.Now())
	if err != nil {
		return err
	}

	p.mu.RLock()
	ch := p.channel
	p.mu.RUnlock()
	if ch == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchangeName, routingKey, false, false, pub)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish job %s: %w", msg.Job.ID, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq: confirm job %s: %w", msg.Job.ID, err)
	}
	if !acked {
		return fmt.Errorf("rabbitmq: broker nacked job %s", msg.Job.ID)
	}

	p.logger.Debug("Published job",
		zap.String("job_id", msg.Job.ID),
		zap.Int("body_size", len(pub.Body)),
	)
	return nil
}

// newPublishing encodes msg as a persistent JSON message keyed by job ID.
func newPublishing(msg *domain.QueuedJob, now time.Time) (amqp.Publishing, error) {
	if msg == nil || msg.Job.ID == "" {
		return amqp.Publishing{}, errors.New("rabbitmq: job without id")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal job: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Job.ID,
		Type:         string(msg.Job.Kind),
		Timestamp:    now,
		Body:         body,
	}, nil
}

// QueueArgs are the job queue's declaration arguments. Publisher and consumer
// must declare the queue identically.
func QueueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange": DeadLetterExchange,
		"x-queue-type":           "quorum",
	}
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)

	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
