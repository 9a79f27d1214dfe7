package studio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/internal/cache"
	"github.com/BaSui01/artspark/internal/metrics"
	"github.com/BaSui01/artspark/llm/structured"
	"github.com/BaSui01/artspark/types"
)

// Cache 翻译缓存所需的最小接口，由 cache.Manager 实现
type Cache interface {
	Key(parts ...string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Generator 单轮文本生成，Backend 实现它
type Generator interface {
	Generate(ctx context.Context, cfg AIConfig, prompt string) (string, error)
}

// Translator 借助对话模型翻译提示词，结果缓存在 Redis
type Translator struct {
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewTranslator 创建翻译器，cache 为 nil 时不缓存
func NewTranslator(c Cache, ttl time.Duration, m *metrics.Collector, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Translator{
		cache:   c,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With(zap.String("component", "translator")),
	}
}

// ToEnglish 把中文描述翻译并润色为英文生图提示词
func (t *Translator) ToEnglish(ctx context.Context, gen Generator, cfg AIConfig, hint, chinese string) (string, error) {
	key := t.key("en", cfg.ModelScope.ChatModel, hint, chinese)
	if v, ok := t.lookup(ctx, key); ok {
		return v, nil
	}

	out, err := gen.Generate(ctx, cfg, translatorPrompt(hint, chinese))
	if err != nil {
		return "", err
	}
	out = cleanPrompt(out)
	if out == "" {
		return "", types.NewMalformedOutputError("translation returned empty text", nil)
	}

	t.store(ctx, key, out)
	return out, nil
}

// ToChinese 批量翻译为中文，返回条数与输入不一致时报错
func (t *Translator) ToChinese(ctx context.Context, gen Generator, cfg AIConfig, lines []string) ([]string, error) {
	key := t.key("zh", strings.Join(lines, "\n"))
	if t.cache != nil {
		var cached []string
		err := t.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil && len(cached) == len(lines):
			t.hit()
			return cached, nil
		case err != nil && !cache.IsCacheMiss(err):
			t.logger.Warn("translation cache read failed", zap.Error(err))
		}
		t.miss()
	}

	raw, err := gen.Generate(ctx, cfg, toChinesePrompt(lines))
	if err != nil {
		return nil, err
	}
	out, err := structured.Extract[[]string](raw)
	if err != nil {
		return nil, err
	}
	if len(out) != len(lines) {
		return nil, types.NewMalformedOutputError(
			fmt.Sprintf("translation returned %d lines for %d inputs", len(out), len(lines)), nil)
	}

	if t.cache != nil {
		if err := t.cache.SetJSON(ctx, key, out, t.ttl); err != nil {
			t.logger.Warn("translation cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

func (t *Translator) key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	digest := hex.EncodeToString(sum[:])
	if t.cache == nil {
		return digest
	}
	return t.cache.Key("translate", digest)
}

func (t *Translator) lookup(ctx context.Context, key string) (string, bool) {
	if t.cache == nil {
		return "", false
	}
	v, err := t.cache.Get(ctx, key)
	if err == nil && v != "" {
		t.hit()
		return v, true
	}
	if err != nil && !cache.IsCacheMiss(err) {
		t.logger.Warn("translation cache read failed", zap.Error(err))
	}
	t.miss()
	return "", false
}

func (t *Translator) store(ctx context.Context, key, value string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Set(ctx, key, value, t.ttl); err != nil {
		t.logger.Warn("translation cache write failed", zap.Error(err))
	}
}

func (t *Translator) hit() {
	if t.metrics != nil {
		t.metrics.RecordCacheHit("translation")
	}
}

func (t *Translator) miss() {
	if t.metrics != nil {
		t.metrics.RecordCacheMiss("translation")
	}
}

// cleanPrompt 去掉模型偶尔附带的引号与代码围栏
func cleanPrompt(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return strings.Trim(s, "\"'“”")
}
