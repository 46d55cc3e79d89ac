// Package kafka publishes domain events to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

var (
	ErrProducerClosed = errors.New(errors.ErrCodeServiceUnavailable, "producer closed")
	ErrNoBrokers      = errors.New(errors.ErrCodeValidation, "kafka brokers required")
)

const (
	defaultMaxAttempts  = 3
	defaultBatchTimeout = 50 * time.Millisecond
	maxMessageBytes     = 1 << 20
)

// writer is the subset of *kafka.Writer the producer drives.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer implements events.Publisher over a kafka.Writer.
type Producer struct {
	writer  writer
	prefix  string
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	closed  atomic.Bool
}

// Option customises a Producer.
type Option func(*Producer)

// WithMetrics counts published events in domain_events_published_total.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(p *Producer) { p.metrics = m }
}

// NewProducer builds a producer for the brokers in cfg.  Messages are keyed
// by aggregate id and hashed to partitions so one aggregate's events stay
// ordered.
func NewProducer(cfg config.KafkaConfig, log logging.Logger, opts ...Option) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = config.DefaultKafkaWriteTimeout
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            defaultMaxAttempts,
		BatchTimeout:           defaultBatchTimeout,
		WriteTimeout:           timeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, cfg.TopicPrefix, log, opts...), nil
}

func newProducer(w writer, prefix string, log logging.Logger, opts ...Option) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	p := &Producer{writer: w, prefix: prefix, logger: log.Named("kafka")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Topic returns the broker topic name for a domain topic.
func (p *Producer) Topic(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish encodes e as an Envelope and writes it synchronously.
func (p *Producer) Publish(ctx context.Context, e events.Event) (err error) {
	defer func() { prometheus.RecordEventPublished(p.metrics, e.Topic, err) }()

	if p.closed.Load() {
		return ErrProducerClosed
	}
	if e.Topic == "" {
		return errors.Validation("event topic required")
	}

	msg, err := p.message(e)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Failed to publish event",
			logging.String("topic", msg.Topic),
			logging.String("event_id", e.ID),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodeExternalService, "publish failed")
	}

	p.logger.Debug("Event published",
		logging.String("topic", msg.Topic),
		logging.String("event_id", e.ID),
	)
	return nil
}

// Close flushes pending writes.  Later calls are no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed")
	return err
}

func (p *Producer) message(e events.Event) (kafka.Message, error) {
	env, err := NewEnvelope(e)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event")
	}
	if len(value) > maxMessageBytes {
		return kafka.Message{}, errors.Validation("event too large")
	}
	return kafka.Message{
		Topic: p.Topic(e.Topic),
		Key:   []byte(e.Key),
		Value: value,
		Time:  env.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Topic)},
			{Key: "schema_version", Value: []byte(SchemaVersion)},
		},
	}, nil
}
