package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("hello")
	assert.Equal(t, 1, recorded.Len())

	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(WithContext(context.Background(), nil)))
}

func TestCorrelationValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithOrganizationID(ctx, "00000000-0000-0000-0000-000000000001")
	ctx = WithAction(ctx, "purchase")
	ctx = WithEventUUID(ctx, "evt-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", GetOrganizationID(ctx))
	assert.Equal(t, "purchase", GetAction(ctx))
	assert.Equal(t, "evt-1", GetEventUUID(ctx))

	empty := context.Background()
	assert.Empty(t, GetRequestID(empty))
	assert.Empty(t, GetOrganizationID(empty))

	// empty values leave the context untouched
	assert.Equal(t, empty, WithAction(empty, ""))
}

func TestFields(t *testing.T) {
	t.Run("no span and no values", func(t *testing.T) {
		assert.Empty(t, Fields(context.Background()))
	})

	t.Run("trace ids first then correlation fields in order", func(t *testing.T) {
		ctx := WithEventUUID(WithAction(spanContext(t), "sale"), "evt-9")

		fields := Fields(ctx)
		require.Len(t, fields, 4)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields[0].String)
		assert.Equal(t, "span_id", fields[1].Key)
		assert.Equal(t, "action", fields[2].Key)
		assert.Equal(t, "event_uuid", fields[3].Key)
	})
}

func TestContextLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-7")
	ctx = WithOrganizationID(ctx, "org-7")

	cl := L(ctx).With(zap.String("component", "processor"))
	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")

	entries := recorded.All()
	require.Len(t, entries, 4)
	for _, e := range entries {
		m := e.ContextMap()
		assert.Equal(t, "req-7", m["request_id"])
		assert.Equal(t, "org-7", m["organization_id"])
		assert.Equal(t, "processor", m["component"])
	}
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestWithLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithAction(spanContext(t), "transfer")

	WithLogger(ctx, zap.New(core)).Info("explicit logger")

	require.Equal(t, 1, recorded.Len())
	m := recorded.All()[0].ContextMap()
	assert.Equal(t, "transfer", m["action"])
	assert.Equal(t, "00f067aa0ba902b7", m["span_id"])

	assert.NotPanics(t, func() {
		WithLogger(context.Background(), nil).Info("falls back to context logger")
	})
}
