package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amkoya-stack/cycles-sub000/internal/core/domain"
	portssvc "github.com/amkoya-stack/cycles-sub000/internal/core/ports/services"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Kinds lists every routing key a worker queue binds.
var Kinds = []domain.JobKind{
	domain.JobPayoutTrigger,
	domain.JobPayoutExecute,
	domain.JobPayoutRetry,
	domain.JobAutoDebitExecute,
}

const retryCountHeader = "x-chama-attempt"

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("invalid AMQP scheme: %q", parsed.Scheme)
	}
	return clean, nil
}

func dial(rawURL string) (*amqp.Connection, *amqp.Channel, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, nil, err
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return conn, ch, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
}

// Publisher sends jobs to a durable topic exchange, routed by kind.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var _ portssvc.JobPublisher = (*Publisher)(nil)

func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	conn, ch, err := dial(amqpURL)
	if err != nil {
		return nil, err
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *Publisher) Publish(ctx context.Context, job domain.Job) error {
	msg, err := toPublishing(job, 1)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, string(job.Kind), false, false, msg)
	if err == nil {
		return nil
	}
	// One reopen attempt covers a channel closed by a broker-side error.
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return fmt.Errorf("failed to publish %s job: %w", job.Kind, err)
	}
	p.channel = ch
	if err := declareExchange(ch, p.exchange); err != nil {
		return fmt.Errorf("failed to redeclare exchange %s: %w", p.exchange, err)
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, string(job.Kind), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s job: %w", job.Kind, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func toPublishing(job domain.Job, attempt int) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode %s job: %w", job.Kind, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.EnqueuedAt,
		Type:         string(job.Kind),
		Headers:      amqp.Table{retryCountHeader: int32(attempt)},
		Body:         body,
	}, nil
}

// Consumer reads jobs from a durable queue bound to every job kind.
type Consumer struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	exchange        string
	queue           string
	prefetch        int
	maxRedeliveries int
	logger          *slog.Logger
	// publish republishes a requeued job; nil uses the channel.
	publish func(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

var _ Source = (*Consumer)(nil)

func NewConsumer(amqpURL, exchange, queue string, prefetch int, logger *slog.Logger) (*Consumer, error) {
	conn, ch, err := dial(amqpURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if prefetch < 1 {
		prefetch = 1
	}
	return &Consumer{
		conn:            conn,
		channel:         ch,
		exchange:        exchange,
		queue:           queue,
		prefetch:        prefetch,
		maxRedeliveries: defaultMaxRedeliveries,
		logger:          logger,
	}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	if err := declareExchange(c.channel, c.exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", c.exchange, err)
	}
	q, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}
	for _, kind := range Kinds {
		if err := c.channel.QueueBind(q.Name, string(kind), c.exchange, false, nil); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", kind, err)
		}
	}
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	const consumerTag = "chama-worker"
	msgs, err := c.channel.Consume(q.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", q.Name, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				if err := c.channel.Cancel(consumerTag, false); err != nil {
					c.log().Warn("Failed to cancel consumer", slog.String("error", err.Error()))
				}
				return
			case msg, ok := <-msgs:
				if !ok {
					c.log().Warn("Job queue delivery channel closed", slog.String("queue", q.Name))
					return
				}
				d, err := c.toDelivery(msg)
				if err != nil {
					c.log().Error("Dropping undecodable job", slog.String("routing_key", msg.RoutingKey), slog.String("error", err.Error()))
					_ = msg.Nack(false, false)
					continue
				}
				select {
				case out <- d:
				case <-ctx.Done():
					_ = msg.Nack(false, true)
				}
			}
		}
	}()
	return out, nil
}

// toDelivery decodes msg. A requeued job is republished with a bumped
// attempt header so the redelivery cap survives broker restarts.
func (c *Consumer) toDelivery(msg amqp.Delivery) (Delivery, error) {
	var job domain.Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		return Delivery{}, err
	}
	if job.Kind == "" {
		job.Kind = domain.JobKind(msg.RoutingKey)
	}
	if string(job.Kind) != msg.RoutingKey {
		return Delivery{}, errors.New("job kind does not match routing key " + msg.RoutingKey)
	}
	attempt := attemptOf(msg.Headers)

	return Delivery{
		Job:     job,
		Attempt: attempt,
		Ack:     func() error { return msg.Ack(false) },
		Nack: func(requeue bool) error {
			if !requeue || attempt > c.maxRedeliveries {
				if requeue {
					c.log().Warn("Dropping job after redeliveries", slog.String("job_id", job.ID), slog.Int("attempt", attempt))
				}
				return msg.Nack(false, false)
			}
			next, err := toPublishing(job, attempt+1)
			if err != nil {
				return msg.Nack(false, true)
			}
			if err := c.republish(context.Background(), msg.RoutingKey, next); err != nil {
				return msg.Nack(false, true)
			}
			return msg.Ack(false)
		},
	}, nil
}

func (c *Consumer) republish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if c.publish != nil {
		return c.publish(ctx, routingKey, msg)
	}
	return c.channel.PublishWithContext(ctx, c.exchange, routingKey, false, false, msg)
}

func (c *Consumer) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

func attemptOf(headers amqp.Table) int {
	switch v := headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
