package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation name of ECA metrics
const MeterName = "eca-engine"

// Metric attribute keys
var (
	AttrAction    = attribute.Key("action")
	AttrSuccess   = attribute.Key("success")
	AttrErrorCode = attribute.Key("error_code")
)

// EventMetrics holds the per-invocation instruments of the processor
type EventMetrics struct {
	events   metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewEventMetrics creates the ECA instruments on meter
func NewEventMetrics(meter metric.Meter) (*EventMetrics, error) {
	events, err := meter.Int64Counter("eca_events_total",
		metric.WithDescription("Webhook events processed, by action and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create eca_events_total: %w", err)
	}
	failed, err := meter.Int64Counter("eca_records_failed_total",
		metric.WithDescription("Line items that failed inside otherwise processed events"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create eca_records_failed_total: %w", err)
	}
	duration, err := meter.Float64Histogram("eca_processing_duration_seconds",
		metric.WithDescription("Time spent processing one webhook event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create eca_processing_duration_seconds: %w", err)
	}
	return &EventMetrics{events: events, failed: failed, duration: duration}, nil
}

// RecordEvent records one processed invocation
func (m *EventMetrics) RecordEvent(ctx context.Context, action string, success bool, errorCode string, recordsFailed int, d time.Duration) {
	if action == "" {
		action = "unknown"
	}
	attrs := []attribute.KeyValue{AttrAction.String(action), AttrSuccess.Bool(success)}
	if errorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(errorCode))
	}
	m.events.Add(ctx, 1, metric.WithAttributes(attrs...))
	if recordsFailed > 0 {
		m.failed.Add(ctx, int64(recordsFailed), metric.WithAttributes(AttrAction.String(action)))
	}
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrAction.String(action), AttrSuccess.Bool(success)))
}
