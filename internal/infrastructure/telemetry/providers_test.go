package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{Enabled: false, ServiceName: "eca-test"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter(MeterName))
	p.EnableSpanProfiles()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOn")
	assert.Contains(t, sampler(0).Description(), "AlwaysOff")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestNewZapOTELCore(t *testing.T) {
	t.Run("nil provider is a no-op core", func(t *testing.T) {
		core := NewZapOTELCore("eca", nil, zapcore.InfoLevel)
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("filters below the minimum level", func(t *testing.T) {
		provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(nopExporter{})))
		defer provider.Shutdown(context.Background())

		core := NewZapOTELCore("eca", provider, zapcore.WarnLevel)
		assert.False(t, core.Enabled(zapcore.InfoLevel))
		assert.True(t, core.Enabled(zapcore.ErrorLevel))
		assert.False(t, core.With([]zapcore.Field{zap.String("k", "v")}).Enabled(zapcore.DebugLevel))
	})
}

type nopExporter struct{}

func (nopExporter) Export(context.Context, []sdklog.Record) error { return nil }
func (nopExporter) Shutdown(context.Context) error                { return nil }
func (nopExporter) ForceFlush(context.Context) error              { return nil }

func TestBridgeLogger_NilProviderReturnsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, BridgeLogger(base, "eca", nil, zapcore.InfoLevel))
}

func TestNewProfiler(t *testing.T) {
	t.Run("disabled profiler is a no-op", func(t *testing.T) {
		p, err := NewProfiler(ProfilerConfig{}, zap.NewNop())
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
	})

	t.Run("enabled profiler requires an address", func(t *testing.T) {
		_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "eca"}, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestWithActionLabels(t *testing.T) {
	called := 0
	WithActionLabels(context.Background(), "sale", func(ctx context.Context) { called++ })
	WithActionLabels(context.Background(), "", func(ctx context.Context) { called++ })
	assert.Equal(t, 2, called)
}
