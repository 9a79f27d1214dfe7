package telemetry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/config"
)

// Providers 服务内所有 span 与指标的来源。
// 禁用时为 noop 实现，调用方无需判空。
type Providers struct {
	tp       trace.TracerProvider
	mp       metric.MeterProvider
	features *FeatureTracer
	shutdown []func(context.Context) error
}

// Noop 返回不导出任何数据的 Providers
func Noop() *Providers {
	return newProviders(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
}

func newProviders(tp trace.TracerProvider, mp metric.MeterProvider) *Providers {
	return &Providers{
		tp:       tp,
		mp:       mp,
		features: NewFeatureTracer(tp, mp),
	}
}

// Init 按配置连接 OTLP collector，并把 Provider 注册为全局默认值
// version 为空时从构建信息读取。
func Init(ctx context.Context, cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Providers, error) {
	if !cfg.Enabled {
		logger.Info("telemetry disabled, spans and feature counters are dropped")
		return Noop(), nil
	}
	if cfg.OTLPEndpoint == "" {
		return nil, errors.New("telemetry.otlp_endpoint is required when telemetry is enabled")
	}

	res, err := newResource(cfg, resolveVersion(version))
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	p := build(cfg, res,
		sdktrace.NewBatchSpanProcessor(traceExporter),
		sdkmetric.NewPeriodicReader(metricExporter))

	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized",
		zap.String("endpoint", cfg.OTLPEndpoint),
		zap.String("service_name", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.SampleRate),
	)
	return p, nil
}

// build 组装 SDK Provider；span 处理器与指标 reader 由调用方决定
func build(cfg config.TelemetryConfig, res *resource.Resource, spans sdktrace.SpanProcessor, reader sdkmetric.Reader) *Providers {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(spans),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	p := newProviders(tp, mp)
	p.shutdown = []func(context.Context) error{tp.Shutdown, mp.Shutdown}
	return p
}

// sampler 上游已采样的请求总是继续采样，根 span 按比例
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func newResource(cfg config.TelemetryConfig, version string) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "artspark"
	}
	env := cfg.Environment
	if env == "" {
		env = "development"
	}
	res, err := resource.New(context.Background(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(version),
			semconv.ServiceInstanceIDKey.String(uuid.NewString()),
			semconv.DeploymentEnvironmentKey.String(env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}
	return res, nil
}

// Tracer 返回指定名称的 tracer，nil 接收者视为 noop
func (p *Providers) Tracer(name string) trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Features 返回功能编排使用的 FeatureTracer，nil 接收者视为 noop
func (p *Providers) Features() *FeatureTracer {
	if p == nil {
		return Noop().features
	}
	return p.features
}

// Enabled 是否在导出数据
func (p *Providers) Enabled() bool {
	return p != nil && len(p.shutdown) > 0
}

// Shutdown 刷出未发送的数据并关闭导出器
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

func resolveVersion(v string) string {
	if v != "" && v != "dev" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
