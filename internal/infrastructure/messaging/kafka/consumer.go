package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/Serial-Intelligence/internal/config"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeMessageQueueError, "consumer closed")
)

// Dead-letter headers added next to the original ones.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
)

// RetryConfig controls handler retries. Backoff doubles from RetryBackoff
// up to MaxRetryBackoff.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string
	CommitInterval  time.Duration
	SessionTimeout  time.Duration
	MaxWait         time.Duration
	// Concurrency is the number of handler lanes. Messages of one partition
	// always share a lane, so per-partition order is kept.
	Concurrency int
	RetryConfig RetryConfig
	// OnResult, when set, is told the outcome of every handled message.
	OnResult func(topic string, ok bool)
}

// ConsumerConfigFrom maps the kafka config section onto a ConsumerConfig
// subscribed to topics.
func ConsumerConfigFrom(cfg config.KafkaConfig, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          topics,
		AutoOffsetReset: cfg.AutoOffsetReset,
		Concurrency:     cfg.WorkerConcurrency,
		RetryConfig: RetryConfig{
			MaxRetries:      cfg.MaxRetries,
			DeadLetterTopic: cfg.DeadLetterTopic,
		},
	}
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.CommitInterval == 0 {
		c.CommitInterval = time.Second
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 30 * time.Second
	}
	if c.MaxWait == 0 {
		c.MaxWait = 500 * time.Millisecond
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.RetryConfig.RetryBackoff == 0 {
		c.RetryConfig.RetryBackoff = time.Second
	}
	if c.RetryConfig.MaxRetryBackoff == 0 {
		c.RetryConfig.MaxRetryBackoff = 30 * time.Second
	}
	return c
}

// ValidateConsumerConfig rejects configs that cannot join a group.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	switch {
	case len(cfg.Brokers) == 0:
		return errors.New(errors.ErrCodeValidation, "brokers required")
	case cfg.GroupID == "":
		return errors.New(errors.ErrCodeValidation, "group id required")
	case len(cfg.Topics) == 0:
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	case cfg.RetryConfig.MaxRetries < 0:
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	case cfg.Concurrency < 0:
		return errors.New(errors.ErrCodeValidation, "concurrency must be >= 0")
	}
	switch cfg.AutoOffsetReset {
	case "", "earliest", "latest":
		return nil
	}
	return errors.New(errors.ErrCodeValidation, "invalid auto offset reset").WithDetail(cfg.AutoOffsetReset)
}

// ReaderInterface is the slice of *kafka.Reader the consumer needs.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher receives dead-lettered messages. *Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
	Close() error
}

// Consumer fetches from a group reader and fans messages out to handler
// lanes keyed by partition. A message is committed once its handler has
// succeeded or it has been dead-lettered.
type Consumer struct {
	reader     ReaderInterface
	deadLetter Publisher
	config     ConsumerConfig
	logger     logging.Logger

	mu       sync.RWMutex
	handlers map[string]common.MessageHandler

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fetchBackoff time.Duration

	consumed     atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
}

// NewConsumer opens a group reader. A dead-letter producer is created when
// a dead-letter topic is configured.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	start := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    start,
	})

	var dl Publisher
	if cfg.RetryConfig.DeadLetterTopic != "" {
		p, err := NewProducer(ProducerConfig{Brokers: cfg.Brokers}, logger)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
		dl = p
	}
	return newConsumer(reader, dl, cfg, logger), nil
}

func newConsumer(r ReaderInterface, dl Publisher, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	return &Consumer{
		reader:       r,
		deadLetter:   dl,
		config:       cfg.withDefaults(),
		logger:       logger,
		handlers:     make(map[string]common.MessageHandler),
		fetchBackoff: time.Second,
	}
}

// Subscribe registers handler for topic, replacing any previous one.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()
	c.logger.Info("Subscribed to topic", logging.String("topic", topic))
}

func (c *Consumer) handler(topic string) (common.MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[topic]
	return h, ok
}

// Start launches the fetch loop and the handler lanes, then returns.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, c.cancel = context.WithCancel(ctx)

	lanes := make([]chan kafka.Message, c.config.Concurrency)
	for i := range lanes {
		lanes[i] = make(chan kafka.Message)
		c.wg.Add(1)
		go c.lane(ctx, lanes[i])
	}
	c.wg.Add(1)
	go c.fetch(ctx, lanes)

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Strings("topics", c.config.Topics),
		logging.Int("lanes", len(lanes)))
	return nil
}

// fetch owns the lanes and closes them on exit.
func (c *Consumer) fetch(ctx context.Context, lanes []chan kafka.Message) {
	defer c.wg.Done()
	defer func() {
		for _, l := range lanes {
			close(l)
		}
	}()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("FetchMessage failed", logging.Err(err))
			if !sleep(ctx, c.fetchBackoff) {
				return
			}
			continue
		}
		c.consumed.Add(1)

		select {
		case lanes[m.Partition%len(lanes)] <- m:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) lane(ctx context.Context, in <-chan kafka.Message) {
	defer c.wg.Done()
	for m := range in {
		c.dispatch(ctx, m)
	}
}

func (c *Consumer) dispatch(ctx context.Context, m kafka.Message) {
	msg := fromKafkaMessage(m)
	h, ok := c.handler(m.Topic)
	if !ok {
		c.logger.Warn("No handler for topic", logging.String("topic", m.Topic))
	} else {
		err := c.handle(ctx, msg, h)
		if ctx.Err() != nil {
			// Left uncommitted; the group redelivers it after restart.
			return
		}
		c.report(m.Topic, err == nil)
		if err != nil {
			c.logger.Error("Message processing failed after retries",
				logging.String("topic", msg.Topic),
				logging.Int("partition", msg.Partition),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			c.sendToDeadLetter(ctx, msg, err)
		}
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Error("CommitMessages failed", logging.Err(err))
	}
}

// handle runs h, retrying with exponential backoff.
func (c *Consumer) handle(ctx context.Context, msg *common.Message, h common.MessageHandler) error {
	rc := c.config.RetryConfig
	delay := rc.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := h(ctx, msg)
		if err == nil || attempt == rc.MaxRetries {
			return err
		}
		c.retried.Add(1)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay = min(delay*2, rc.MaxRetryBackoff)
	}
}

func (c *Consumer) report(topic string, ok bool) {
	if ok {
		c.processed.Add(1)
	} else {
		c.failed.Add(1)
	}
	if c.config.OnResult != nil {
		c.config.OnResult(topic, ok)
	}
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *common.Message, cause error) {
	topic := c.config.RetryConfig.DeadLetterTopic
	if c.deadLetter == nil || topic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorMessage] = cause.Error()

	err := c.deadLetter.Publish(ctx, &common.ProducerMessage{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		c.logger.Error("Failed to send to dead letter queue", logging.String("topic", topic), logging.Err(err))
		return
	}
	c.deadLettered.Add(1)
}

func (c *Consumer) Processed() int64    { return c.processed.Load() }
func (c *Consumer) Failed() int64       { return c.failed.Load() }
func (c *Consumer) Retried() int64      { return c.retried.Load() }
func (c *Consumer) DeadLettered() int64 { return c.deadLettered.Load() }

// Close stops fetching, waits for in-flight handlers and releases the
// reader and dead-letter producer. Repeated calls are no-ops.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()
	c.wg.Wait()

	err := c.reader.Close()
	if c.deadLetter != nil {
		_ = c.deadLetter.Close()
	}
	c.logger.Info("Kafka consumer closed",
		logging.Int64("consumed", c.consumed.Load()),
		logging.Int64("processed", c.processed.Load()),
		logging.Int64("failed", c.failed.Load()))
	return err
}

func fromKafkaMessage(m kafka.Message) *common.Message {
	msg := &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

//Personal.AI order the ending
