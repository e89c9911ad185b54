package kafka

import (
	"context"
	"sort"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

const (
	eventRetentionMs      int64 = 7 * 24 * 3600 * 1000
	deadLetterRetentionMs int64 = 30 * 24 * 3600 * 1000
)

// DefaultTopics lists every topic the API server publishes to or the worker
// consumes from.
func DefaultTopics() []common.TopicConfig {
	topic := func(name string, partitions int, retention int64) common.TopicConfig {
		return common.TopicConfig{Name: name, NumPartitions: partitions, ReplicationFactor: 1, RetentionMs: retention}
	}
	return []common.TopicConfig{
		topic(TopicSerialExtracted, 6, eventRetentionMs),
		topic(TopicSerialGenerated, 3, eventRetentionMs),
		// One partition keeps pattern changes ordered.
		topic(TopicPatternChanged, 1, eventRetentionMs),
		topic(TopicExportRequested, 3, eventRetentionMs),
		topic(TopicDeadLetter, 1, deadLetterRetentionMs),
	}
}

// ConnInterface is the slice of *kafka.Conn the manager needs.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions topics through a single broker connection.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to dial kafka").
			WithDetail("broker=" + brokers[0])
	}
	return &TopicManager{conn: conn, logger: logger}, nil
}

// CreateTopic provisions one topic; an existing topic is left untouched.
func (m *TopicManager) CreateTopic(ctx context.Context, cfg common.TopicConfig) error {
	return m.EnsureTopics(ctx, []common.TopicConfig{cfg})
}

// EnsureTopics validates every config, then creates the missing topics in
// one request. A create error is forgiven when every topic exists
// afterwards, which covers two instances provisioning at once.
func (m *TopicManager) EnsureTopics(ctx context.Context, topics []common.TopicConfig) error {
	var missing []kafka.TopicConfig
	for _, t := range topics {
		kc, err := toKafkaTopic(t)
		if err != nil {
			return err
		}
		if !m.exists(t.Name) {
			missing = append(missing, kc)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTimeout, "topic provisioning cancelled")
	}

	if err := m.conn.CreateTopics(missing...); err != nil {
		for _, kc := range missing {
			if !m.exists(kc.Topic) {
				return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to create topic "+kc.Topic)
			}
		}
		return nil
	}
	for _, kc := range missing {
		m.logger.Info("Topic created",
			logging.String("topic", kc.Topic),
			logging.Int("partitions", kc.NumPartitions))
	}
	return nil
}

func (m *TopicManager) exists(name string) bool {
	partitions, err := m.conn.ReadPartitions(name)
	return err == nil && len(partitions) > 0
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// toKafkaTopic checks cfg and converts it. Config entries come out in a
// stable order: retention, cleanup policy, then extra configs by name.
func toKafkaTopic(cfg common.TopicConfig) (kafka.TopicConfig, error) {
	if cfg.Name == "" {
		return kafka.TopicConfig{}, errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.NumPartitions <= 0 || cfg.ReplicationFactor <= 0 {
		return kafka.TopicConfig{}, errors.New(errors.ErrCodeValidation, "partitions and replication factor must be > 0").
			WithDetail("topic=" + cfg.Name)
	}

	kc := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	entry := func(name, value string) {
		kc.ConfigEntries = append(kc.ConfigEntries, kafka.ConfigEntry{ConfigName: name, ConfigValue: value})
	}
	if cfg.RetentionMs > 0 {
		entry("retention.ms", strconv.FormatInt(cfg.RetentionMs, 10))
	}
	if cfg.CleanupPolicy != "" {
		entry("cleanup.policy", cfg.CleanupPolicy)
	}
	extra := make([]string, 0, len(cfg.Configs))
	for k := range cfg.Configs {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		entry(k, cfg.Configs[k])
	}
	return kc, nil
}

//Personal.AI order the ending
