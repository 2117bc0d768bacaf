package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	recorder := setupRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "eca_processor", "process",
		attribute.String(SpanAttrAction, "purchase"))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "eca_processor.process", spans[0].Name())
	assert.Equal(t, TracerName, spans[0].InstrumentationScope().Name)
	assert.Equal(t, "purchase", attrMap(spans[0].Attributes())[SpanAttrAction].AsString())
}

func TestSetAttributes(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	SetAttributes(span,
		SpanAttrRecordsFailed, 2,
		"eca.success", true,
		42, "skipped",
		"dangling",
	)
	span.End()

	attrs := attrMap(recorder.Ended()[0].Attributes())
	assert.Equal(t, int64(2), attrs[SpanAttrRecordsFailed].AsInt64())
	assert.True(t, attrs["eca.success"].AsBool())
	assert.NotContains(t, attrs, "dangling")
	assert.Len(t, attrs, 2)
}

func TestRecordError(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "boom", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	recorder := setupRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	AddEvent(span, "record_failed", "index", 3)
	span.End()

	events := recorder.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "record_failed", events[0].Name)
	assert.Equal(t, int64(3), attrMap(events[0].Attributes)["index"].AsInt64())
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))
}
