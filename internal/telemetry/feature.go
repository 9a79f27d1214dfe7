package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/artspark/studio"

// FeatureTracer 为每次功能调用开启 span 并计数
type FeatureTracer struct {
	tracer trace.Tracer
	calls  metric.Int64Counter
}

// NewFeatureTracer 使用指定 Provider 创建，一般通过 [Providers.Features] 取得
func NewFeatureTracer(tp trace.TracerProvider, mp metric.MeterProvider) *FeatureTracer {
	calls, err := mp.Meter(instrumentationName).Int64Counter("artspark.feature.calls",
		metric.WithDescription("Feature calls by outcome"))
	if err != nil {
		otel.Handle(err)
	}
	return &FeatureTracer{
		tracer: tp.Tracer(instrumentationName),
		calls:  calls,
	}
}

// Start 开启功能 span，返回的 end 必须调用一次
func (f *FeatureTracer) Start(ctx context.Context, feature, platform string) (context.Context, func(err error)) {
	attrs := []attribute.KeyValue{
		attribute.String("artspark.feature", feature),
		attribute.String("artspark.platform", platform),
	}
	ctx, span := f.tracer.Start(ctx, "studio."+feature, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if f.calls != nil {
			f.calls.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("outcome", outcome))...))
		}
		span.End()
	}
}
