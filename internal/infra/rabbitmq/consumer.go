package rabbitmq

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const attemptHeader = "x-attempt"

type MessageHandler func(ctx context.Context, body []byte) error

// Consumer feeds gallery requests to a fixed pool of workers. A failed request
// is republished with an incremented attempt header after an exponential
// backoff, and parked in the DLQ once MaxAttempts is reached.
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	exchange    string
	dlq         string
	workerCount int
	maxAttempts int
	baseDelay   time.Duration
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
	pubMu       sync.Mutex
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	MaxAttempts int
	BaseDelayMs int
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

	if err := DeclareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		exchange:    cfg.Exchange,
		dlq:         cfg.DLQ,
		workerCount: cfg.WorkerCount,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:     handler,
		logger:      logger,
	}, nil
}

// DeclareTopology declares the exchange and queues used by the gallery worker.
func DeclareTopology(ch *amqp.Channel, cfg ConsumerConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	if err := ch.QueueBind(cfg.Queue, RequestRoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind request queue: %w", err)
	}
	if err := ch.QueueBind(cfg.StatusQueue, StatusRoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind status queue: %w", err)
	}
	return nil
}

// Connection exposes the underlying connection so publishers can share it.
func (c *Consumer) Connection() *amqp.Connection {
	return c.conn
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
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

	attempt := AttemptOf(d.Headers)
	log.Warn("gallery request failed",
		zap.Error(err),
		zap.Int("attempt", attempt),
		zap.Uint64("delivery_tag", d.DeliveryTag),
	)

	if ctx.Err() != nil {
		// shutting down; hand the delivery back untouched
		_ = d.Nack(false, true)
		return
	}

	if attempt >= c.maxAttempts {
		log.Error("gallery request exhausted its attempts, parking in DLQ", zap.Int("max_attempts", c.maxAttempts))
		if perr := c.republish(ctx, "", c.dlq, d, amqp.Table{"x-dlq-reason": "max attempts exceeded: " + err.Error()}); perr != nil {
			log.Error("failed to park request", zap.Error(perr))
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
		return
	}

	delay := Backoff(c.baseDelay, attempt)
	log.Info("backoff before retry", zap.Duration("delay", delay), zap.Int("attempt", attempt))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		_ = d.Nack(false, true)
		return
	}

	if perr := c.republish(ctx, c.exchange, RequestRoutingKey, d, amqp.Table{attemptHeader: int32(attempt + 1)}); perr != nil {
		log.Error("failed to republish request, requeueing", zap.Error(perr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) republish(ctx context.Context, exchange, key string, d amqp.Delivery, headers amqp.Table) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	return c.channel.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		Body:         d.Body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
	})
}

// AttemptOf reads the delivery attempt from headers; a fresh message is attempt 1.
func AttemptOf(headers amqp.Table) int {
	switch v := headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

// Backoff doubles base for every attempt after the first, capped at one minute.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > 60*time.Second || delay < 0 {
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
