package studio

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/llm/speech"
	"github.com/BaSui01/artspark/types"
)

// TranscribeRequest 语音转文字
type TranscribeRequest struct {
	Audio []byte
	// Format 显式格式，为空时按 Filename 扩展名推断
	Format   string
	Filename string
}

// Transcribe 语音转文字，使用百炼 Key，缺省时回落到会话中的魔搭 Key
func (s *Studio) Transcribe(ctx context.Context, cfg AIConfig, req TranscribeRequest) (out *speech.TranscriptResult, err error) {
	ctx, end := s.observe(ctx, types.FeatureTranscribe, types.PlatformDashScope)
	defer func() { end(err) }()

	if len(req.Audio) == 0 {
		return nil, types.NewValidationError("audio file is required")
	}
	format, ok := speech.NormalizeFormat(req.Format)
	if strings.TrimSpace(req.Format) == "" {
		format, ok = speech.FormatFromFilename(req.Filename)
	}
	if !ok {
		return nil, types.NewValidationError("unsupported audio format, allowed: " +
			strings.Join(speech.SupportedFormats(), ", "))
	}

	key := cfg.BailianKey
	if key == "" {
		key = cfg.ModelScopeKey
	}
	if key == "" {
		return nil, types.NewCredentialError("a Bailian API key is required for speech recognition")
	}
	if s.transcriber == nil {
		return nil, types.NewError(types.ErrInternalError, "speech recognition is not configured")
	}

	return s.transcriber.Transcribe(ctx, key, req.Audio, format)
}

// ValidateKey 校验魔搭 API Key；被平台拒绝时返回 (false, nil)
func (s *Studio) ValidateKey(ctx context.Context, apiKey string) (bool, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return false, types.NewValidationError("api_key is required")
	}
	if s.validator == nil {
		return false, types.NewError(types.ErrInternalError, "key validation is not configured")
	}

	ok, err := s.validator.ValidateKey(ctx, apiKey)
	if err != nil {
		s.logger.Warn("key validation failed", zap.Error(err))
		return false, err
	}
	return ok, nil
}
