package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/infrastructure/telemetry"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

// SchemaVersion is the version of the audit message value
const SchemaVersion = "1"

// MessageWriter is the subset of *kafka.Writer used by KafkaSink
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds the audit producer configuration
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// KafkaSink publishes audit records to a Kafka topic, keyed by organization
// so one tenant's trail stays ordered within a partition
type KafkaSink struct {
	writer MessageWriter
	topic  string
}

// NewKafkaWriter creates the producer for cfg
func NewKafkaWriter(cfg KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaSink creates a KafkaSink. When the writer already has a topic,
// topic is ignored on messages.
func NewKafkaSink(writer MessageWriter, topic string) *KafkaSink {
	if w, ok := writer.(*kafka.Writer); ok && w.Topic != "" {
		topic = ""
	}
	return &KafkaSink{writer: writer, topic: topic}
}

// Record publishes rec as JSON
func (s *KafkaSink) Record(ctx context.Context, rec *eca.AuditRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "audit.KafkaSink.Record",
		attribute.String(telemetry.SpanAttrAction, rec.Action),
		attribute.String(telemetry.SpanAttrEventUUID, rec.EventUUID.String()),
	)
	defer span.End()

	value, err := json.Marshal(rec)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to encode audit record %s: %w", rec.ID, err)
	}

	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(rec.OrganizationID.String()),
		Value: value,
		Time:  rec.CreatedAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(rec.Action)},
			{Key: "event_uuid", Value: []byte(rec.EventUUID.String())},
			{Key: "success", Value: []byte(fmt.Sprint(rec.Success))},
			{Key: "schema_version", Value: []byte(SchemaVersion)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to publish audit record %s: %w", rec.ID, err)
	}
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

var _ eca.AuditSink = (*KafkaSink)(nil)
