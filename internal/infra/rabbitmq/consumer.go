package rabbitmq

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// attemptHeader carries the explicit retry count across republishes. The
// broker only stamps x-death on dead-lettered messages, not on plain
// requeues, so the attempt number travels in our own header.
const attemptHeader = "x-attempt"

type MessageHandler func(ctx context.Context, body []byte) error

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	baseDelay   time.Duration
	maxAttempts int
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL          string
	RequestQueue string
	ResultQueue  string
	DLQ          string
	Exchange     string
	Prefetch     int
	WorkerCount  int
	BaseDelayMs  int
	MaxAttempts  int
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	// The request queue dead-letters into the DLQ via the default exchange,
	// so a nack with requeue=false lands there instead of being discarded.
	requestArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DLQ,
	}
	_, err = ch.QueueDeclare(cfg.RequestQueue, true, false, false, false, requestArgs)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", cfg.RequestQueue, err)
	}

	for _, q := range []string{cfg.ResultQueue, cfg.DLQ} {
		_, err = ch.QueueDeclare(q, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	err = ch.QueueBind(cfg.RequestQueue, cfg.RequestQueue, cfg.Exchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("bind request queue: %w", err)
	}

	err = ch.QueueBind(cfg.ResultQueue, cfg.ResultQueue, cfg.Exchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("bind result queue: %w", err)
	}

	err = ch.Qos(cfg.Prefetch, 0, false)
	if err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.RequestQueue,
		workerCount: cfg.WorkerCount,
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		maxAttempts: maxAttempts,
		handler:     handler,
		logger:      logger,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"lumiere-worker-"+uuid.NewString(),
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	attempt := attemptFromHeaders(d)
	metrics.RedeliveryTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
	log.Warn("request processing failed",
		zap.Error(err),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", c.maxAttempts),
		zap.Uint64("delivery_tag", d.DeliveryTag),
	)

	if attempt >= c.maxAttempts {
		log.Error("retries exhausted, dead-lettering request",
			zap.Int("attempt", attempt),
		)
		_ = d.Nack(false, false) // dead-letters via the queue's x-dead-letter args
		return
	}

	delay := c.calculateBackoff(attempt)
	log.Info("backoff before retry", zap.Duration("delay", delay), zap.Int("attempt", attempt))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		// Shutting down mid-backoff: put the message back without
		// consuming the attempt so a restarted worker picks it up.
		_ = d.Nack(false, true)
		return
	}

	if pubErr := c.republish(ctx, d, attempt+1); pubErr != nil {
		log.Error("republish for retry failed, requeueing as-is", zap.Error(pubErr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// republish puts the message back on the request queue with the attempt
// header bumped. A plain Nack requeue would deliver the same headers again
// and the attempt count could never grow.
func (c *Consumer) republish(ctx context.Context, d amqp.Delivery, attempt int) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[attemptHeader] = int32(attempt)

	return c.channel.PublishWithContext(ctx,
		"",
		c.queue,
		false, false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         d.Body,
		},
	)
}

func attemptFromHeaders(d amqp.Delivery) int {
	if d.Headers == nil {
		return 1
	}
	switch v := d.Headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

func (c *Consumer) calculateBackoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
