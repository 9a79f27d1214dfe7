package studio

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/internal/ctxkeys"
	"github.com/BaSui01/artspark/internal/database"
	"github.com/BaSui01/artspark/internal/metrics"
	"github.com/BaSui01/artspark/internal/telemetry"
	"github.com/BaSui01/artspark/llm/speech"
	"github.com/BaSui01/artspark/types"
)

// DefaultBatchLimit 创意示例图的默认并发上限
const DefaultBatchLimit = 5

// Transcriber 语音识别执行器
type Transcriber interface {
	Transcribe(ctx context.Context, apiKey string, audio []byte, format string) (*speech.TranscriptResult, error)
}

// KeyValidator 校验魔搭 API Key
type KeyValidator interface {
	ValidateKey(ctx context.Context, apiKey string) (bool, error)
}

// UsageRecorder 用量台账
type UsageRecorder interface {
	Record(ctx context.Context, rec database.UsageRecord)
}

// Studio 功能编排入口
type Studio struct {
	backends    map[types.Platform]Backend
	transcriber Transcriber
	validator   KeyValidator
	translator  *Translator
	batchLimit  int

	metrics *metrics.Collector
	tracer  *telemetry.FeatureTracer
	usage   UsageRecorder
	logger  *zap.Logger
}

// Option 配置 Studio
type Option func(*Studio)

// WithTranscriber 设置语音识别执行器
func WithTranscriber(t Transcriber) Option {
	return func(s *Studio) { s.transcriber = t }
}

// WithKeyValidator 设置密钥校验器
func WithKeyValidator(v KeyValidator) Option {
	return func(s *Studio) { s.validator = v }
}

// WithTranslator 设置翻译器（名画讲解的中文元数据使用）
func WithTranslator(t *Translator) Option {
	return func(s *Studio) { s.translator = t }
}

// WithBatchLimit 设置示例图并发上限
func WithBatchLimit(n int) Option {
	return func(s *Studio) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Studio) { s.metrics = m }
}

// WithTracer 设置功能追踪器
func WithTracer(t *telemetry.FeatureTracer) Option {
	return func(s *Studio) { s.tracer = t }
}

// WithUsageRecorder 设置用量台账
func WithUsageRecorder(u UsageRecorder) Option {
	return func(s *Studio) { s.usage = u }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Studio) {
		if l != nil {
			s.logger = l
		}
	}
}

// New 创建 Studio，每个平台一个 Backend
func New(backends []Backend, opts ...Option) *Studio {
	s := &Studio{
		backends:   make(map[types.Platform]Backend, len(backends)),
		batchLimit: DefaultBatchLimit,
		logger:     zap.NewNop(),
	}
	for _, b := range backends {
		s.backends[b.Platform()] = b
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = telemetry.Noop().Features()
	}
	s.logger = s.logger.With(zap.String("component", "studio"))
	return s
}

// backend 按平台选择实现，并在任何上游调用之前检查凭证
func (s *Studio) backend(cfg AIConfig) (Backend, error) {
	b, ok := s.backends[cfg.Platform]
	if !ok {
		return nil, types.NewError(types.ErrInternalError,
			fmt.Sprintf("platform %q is not configured", cfg.Platform))
	}
	if cfg.Credential() == "" {
		if cfg.Platform == types.PlatformDashScope {
			return nil, types.NewCredentialError("bailian_api_key is required for the bailian platform")
		}
		return nil, types.NewCredentialError("ModelScope API key is required")
	}
	return b, nil
}

// observe 开启一次功能调用的追踪，返回的 end 记录指标与台账
func (s *Studio) observe(ctx context.Context, feature types.Feature, platform types.Platform) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := s.tracer.Start(ctx, string(feature), string(platform))

	return ctx, func(err error) {
		endSpan(err)
		dur := time.Since(start)

		outcome := database.OutcomeSuccess
		var code string
		if err != nil {
			outcome = database.OutcomeError
			code = string(types.GetErrorCode(err))
			if code == "" {
				code = string(types.ErrInternalError)
			}
		}

		if s.metrics != nil {
			s.metrics.RecordFeature(string(feature), string(platform), outcome, dur)
		}

		requestID, _ := ctxkeys.RequestID(ctx)
		if s.usage != nil {
			s.usage.Record(ctx, database.UsageRecord{
				RequestID:  requestID,
				Feature:    string(feature),
				Platform:   string(platform),
				Outcome:    outcome,
				ErrorCode:  code,
				DurationMs: dur.Milliseconds(),
			})
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("feature", string(feature)),
			zap.String("platform", string(platform)),
			zap.Duration("duration", dur),
		}
		if err != nil {
			s.logger.Warn("feature failed", append(fields, zap.String("error_code", code), zap.Error(err))...)
			return
		}
		s.logger.Info("feature completed", fields...)
	}
}

func (s *Studio) recordBatchItem(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBatchItem(outcome)
	}
}
