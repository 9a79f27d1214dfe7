package studio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/internal/storage"
	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/llm/providers/modelscope"
	"github.com/BaSui01/artspark/types"
)

// ModelScopeBackend 魔搭平台实现
// 生图接口只接受图片 URL，输入图先经 Store 落盘；中文提示词先翻译为英文。
type ModelScopeBackend struct {
	exec       *modelscope.Provider
	store      storage.Store
	translator *Translator
	logger     *zap.Logger
}

// NewModelScopeBackend 创建魔搭后端
func NewModelScopeBackend(exec *modelscope.Provider, store storage.Store, translator *Translator, logger *zap.Logger) *ModelScopeBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if translator == nil {
		translator = NewTranslator(nil, 0, nil, logger)
	}
	return &ModelScopeBackend{
		exec:       exec,
		store:      store,
		translator: translator,
		logger:     logger.With(zap.String("backend", string(types.PlatformModelScope))),
	}
}

// Platform 返回平台标识
func (b *ModelScopeBackend) Platform() types.Platform { return types.PlatformModelScope }

// Generate 单轮生成
func (b *ModelScopeBackend) Generate(ctx context.Context, cfg AIConfig, prompt string) (string, error) {
	res, err := b.exec.Chat(ctx, cfg.ModelScopeKey, &llm.ChatRequest{
		Model:       cfg.ModelScope.ChatModel,
		Messages:    []llm.Message{llm.UserMessage(prompt)},
		MaxTokens:   800,
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Chat 多轮对话
func (b *ModelScopeBackend) Chat(ctx context.Context, cfg AIConfig, msgs []llm.Message) (*llm.ChatResult, error) {
	return b.exec.Chat(ctx, cfg.ModelScopeKey, &llm.ChatRequest{
		Model:       cfg.ModelScope.ChatModel,
		Messages:    msgs,
		MaxTokens:   500,
		Temperature: 0.7,
	})
}

// Colorize 落盘 → 自适应尺寸 → 翻译提示词 → 异步生图
func (b *ModelScopeBackend) Colorize(ctx context.Context, cfg AIConfig, src *image.Source, prompt string) (string, error) {
	url, w, h, err := b.upload(ctx, src)
	if err != nil {
		return "", err
	}

	en, err := b.translator.ToEnglish(ctx, b, cfg, "Coloring a lineart image.",
		colorizeTemplate(prompt)+bandQualifier(cfg.AgeRange))
	if err != nil {
		return "", err
	}

	return b.generateAsync(ctx, cfg, modelscope.ImageRequest{
		Prompt:         en,
		NegativePrompt: negColorize,
		Size:           image.AdaptiveSize(w, h),
		ImageURL:       url,
	})
}

// StyleTransfer 有风格图时识图取风格关键词，否则翻译文本指令
func (b *ModelScopeBackend) StyleTransfer(ctx context.Context, cfg AIConfig, content, style *image.Source, prompt string) (string, error) {
	contentURL, w, h, err := b.upload(ctx, content)
	if err != nil {
		return "", err
	}

	var en string
	if style != nil {
		desc, err := b.analyseStyle(ctx, cfg, style)
		if err != nil {
			return "", err
		}
		en = fusionPrompt(desc)
	} else {
		en, err = b.translator.ToEnglish(ctx, b, cfg, "Applying a creative style from the user's instruction.",
			prompt+bandQualifier(cfg.AgeRange))
		if err != nil {
			return "", err
		}
	}

	return b.generateAsync(ctx, cfg, modelscope.ImageRequest{
		Prompt:         en,
		NegativePrompt: negStyle,
		Size:           image.AdaptiveSize(w, h),
		ImageURL:       contentURL,
		Strength:       styleStrength,
	})
}

// PortraitStyle 以图生图模拟人像风格化
func (b *ModelScopeBackend) PortraitStyle(ctx context.Context, cfg AIConfig, portrait, style *image.Source, preset int) (string, error) {
	var en string
	if style != nil {
		desc, err := b.analyseStyle(ctx, cfg, style)
		if err != nil {
			return "", err
		}
		en = portraitFromStyle(desc)
	} else {
		name := PresetStyleName(preset)
		var err error
		en, err = b.translator.ToEnglish(ctx, b, cfg, "Stylizing a portrait into preset style "+name+".",
			portraitTemplate(name))
		if err != nil {
			return "", err
		}
	}

	url, w, h, err := b.upload(ctx, portrait)
	if err != nil {
		return "", err
	}
	return b.generateAsync(ctx, cfg, modelscope.ImageRequest{
		Prompt:         en,
		NegativePrompt: negPortrait,
		Size:           image.AdaptiveSize(w, h),
		ImageURL:       url,
		Strength:       portraitStrength,
	})
}

// ExampleImage 翻译后同步生成 1024x1024 示例图
func (b *ModelScopeBackend) ExampleImage(ctx context.Context, cfg AIConfig, idea types.StyledIdea, negative string) (string, error) {
	en, err := b.translator.ToEnglish(ctx, b, cfg, "Generating an image for creative idea: "+idea.Name,
		ideaImagePrompt(idea, cfg.AgeRange))
	if err != nil {
		return "", err
	}
	res, err := b.exec.GenerateImage(ctx, cfg.ModelScopeKey, modelscope.ImageRequest{
		Model:          cfg.ModelScope.ImageModel,
		Prompt:         en,
		NegativePrompt: negative,
		Size:           image.DefaultSize(),
	})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// Describe 落盘后识图
func (b *ModelScopeBackend) Describe(ctx context.Context, cfg AIConfig, src *image.Source, prompt string) (string, error) {
	url, _, _, err := b.upload(ctx, src)
	if err != nil {
		return "", err
	}
	res, err := b.exec.Vision(ctx, cfg.ModelScopeKey, modelscope.VisionRequest{
		Model:    cfg.ModelScope.VLModel,
		ImageURL: url,
		Prompt:   prompt,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (b *ModelScopeBackend) analyseStyle(ctx context.Context, cfg AIConfig, style *image.Source) (string, error) {
	url, _, _, err := b.upload(ctx, style)
	if err != nil {
		return "", err
	}
	res, err := b.exec.Vision(ctx, cfg.ModelScopeKey, modelscope.VisionRequest{
		Model:    cfg.ModelScope.VLModel,
		ImageURL: url,
		Prompt:   styleAnalysisUser,
		System:   styleAnalysisSystem,
	})
	if err != nil {
		return "", err
	}
	return cleanPrompt(res.Text), nil
}

func (b *ModelScopeBackend) upload(ctx context.Context, src *image.Source) (string, int, int, error) {
	if b.store == nil {
		return "", 0, 0, types.NewError(types.ErrInternalError, "image store is not configured")
	}
	url, w, h, err := b.store.Put(ctx, src.Data, src.MIME())
	if err != nil {
		return "", 0, 0, fmt.Errorf("store input image: %w", err)
	}
	return url, w, h, nil
}

func (b *ModelScopeBackend) generateAsync(ctx context.Context, cfg AIConfig, req modelscope.ImageRequest) (string, error) {
	req.Model = cfg.ModelScope.ImageModel
	res, err := b.exec.GenerateImageAsync(ctx, cfg.ModelScopeKey, req)
	if err != nil {
		return "", err
	}
	b.logger.Debug("image generated",
		zap.String("task_id", res.TaskID),
		zap.String("size", req.Size.ModelScope()))
	return res.URL, nil
}
