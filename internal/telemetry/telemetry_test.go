package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/config"
)

func recordingProviders(t *testing.T, cfg config.TelemetryConfig) (*Providers, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	res, err := newResource(cfg, "1.4.0")
	require.NoError(t, err)

	sr := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	p := build(cfg, res, sr, reader)
	t.Cleanup(func() { p.Shutdown(context.Background()) })
	return p, sr, reader
}

func TestFeatureSpansCarryServiceResource(t *testing.T) {
	p, sr, reader := recordingProviders(t, config.TelemetryConfig{
		ServiceName: "artspark-test",
		Environment: "staging",
		SampleRate:  1,
	})
	require.True(t, p.Enabled())

	_, end := p.Features().Start(context.Background(), "colorize", "bailian")
	end(errors.New("upstream down"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Resource().Set()

	name, _ := attrs.Value(semconv.ServiceNameKey)
	assert.Equal(t, "artspark-test", name.AsString())
	version, _ := attrs.Value(semconv.ServiceVersionKey)
	assert.Equal(t, "1.4.0", version.AsString())
	env, _ := attrs.Value(semconv.DeploymentEnvironmentKey)
	assert.Equal(t, "staging", env.AsString())
	instance, ok := attrs.Value(semconv.ServiceInstanceIDKey)
	assert.True(t, ok)
	assert.NotEmpty(t, instance.AsString())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	metricName, _ := rm.Resource.Set().Value(semconv.ServiceNameKey)
	assert.Equal(t, "artspark-test", metricName.AsString())
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "artspark.feature.calls", rm.ScopeMetrics[0].Metrics[0].Name)
}

func TestResourceDefaults(t *testing.T) {
	res, err := newResource(config.TelemetryConfig{}, "dev")
	require.NoError(t, err)

	name, _ := res.Set().Value(semconv.ServiceNameKey)
	assert.Equal(t, "artspark", name.AsString())
	env, _ := res.Set().Value(semconv.DeploymentEnvironmentKey)
	assert.Equal(t, "development", env.AsString())
}

func TestSampler(t *testing.T) {
	p, sr, _ := recordingProviders(t, config.TelemetryConfig{SampleRate: 0})

	_, end := p.Features().Start(context.Background(), "ideas", "modelscope")
	end(nil)
	assert.Empty(t, sr.Ended(), "root spans dropped at rate 0")

	// 上游已采样的请求继续采样
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)
	_, end = p.Features().Start(ctx, "ideas", "modelscope")
	end(nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, parent.TraceID(), spans[0].SpanContext().TraceID())
}

func TestHTTPTracerSharesProvider(t *testing.T) {
	p, sr, _ := recordingProviders(t, config.TelemetryConfig{SampleRate: 1})

	_, span := p.Tracer("artspark/http").Start(context.Background(), "POST /api/colorize-lineart")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "artspark/http", sr.Ended()[0].InstrumentationScope().Name)
}

func TestInit_DisabledIsNoop(t *testing.T) {
	before := otel.GetTracerProvider()

	p, err := Init(context.Background(), config.TelemetryConfig{Enabled: false}, "1.0.0", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.Same(t, before, otel.GetTracerProvider(), "disabled telemetry leaves globals alone")

	_, end := p.Features().Start(context.Background(), "colorize", "modelscope")
	assert.NotPanics(t, func() { end(nil) })
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_EnabledRequiresEndpoint(t *testing.T) {
	_, err := Init(context.Background(), config.TelemetryConfig{Enabled: true}, "", zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "otlp_endpoint")
}

func TestProviders_NilReceiver(t *testing.T) {
	var p *Providers
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Features())
	assert.NotNil(t, p.Tracer("x"))
}

func TestProviders_ShutdownOnce(t *testing.T) {
	p, _, _ := recordingProviders(t, config.TelemetryConfig{SampleRate: 1})

	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestResolveVersion(t *testing.T) {
	assert.Equal(t, "1.2.3", resolveVersion("1.2.3"))
	// 测试二进制的构建信息为 (devel)
	assert.Equal(t, "dev", resolveVersion(""))
	assert.Equal(t, "dev", resolveVersion("dev"))
}

var _ sdktrace.SpanProcessor = (*tracetest.SpanRecorder)(nil)
