package studio

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/llm/providers/dashscope"
	"github.com/BaSui01/artspark/types"
)

// DashScopeBackend 百炼平台实现
// 图片以 data URL 内联传输，提交前缩放到 [512, 4096]；提示词直接使用中文。
type DashScopeBackend struct {
	exec   *dashscope.Provider
	logger *zap.Logger
}

// NewDashScopeBackend 创建百炼后端
func NewDashScopeBackend(exec *dashscope.Provider, logger *zap.Logger) *DashScopeBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashScopeBackend{
		exec:   exec,
		logger: logger.With(zap.String("backend", string(types.PlatformDashScope))),
	}
}

// Platform 返回平台标识
func (b *DashScopeBackend) Platform() types.Platform { return types.PlatformDashScope }

// Generate 单轮生成
func (b *DashScopeBackend) Generate(ctx context.Context, cfg AIConfig, prompt string) (string, error) {
	res, err := b.exec.Chat(ctx, cfg.BailianKey, &llm.ChatRequest{
		Model:       cfg.DashScope.ChatModel,
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
func (b *DashScopeBackend) Chat(ctx context.Context, cfg AIConfig, msgs []llm.Message) (*llm.ChatResult, error) {
	return b.exec.Chat(ctx, cfg.BailianKey, &llm.ChatRequest{
		Model:       cfg.DashScope.ChatModel,
		Messages:    msgs,
		MaxTokens:   500,
		Temperature: 0.7,
	})
}

// Colorize 涂鸦作画（doodle），is_sketch=false 保留线稿结构
func (b *DashScopeBackend) Colorize(ctx context.Context, cfg AIConfig, src *image.Source, prompt string) (string, error) {
	fit, err := src.FitForDashScope()
	if err != nil {
		return "", err
	}
	isSketch := false
	res, err := b.exec.EditImage(ctx, cfg.BailianKey, dashscope.EditRequest{
		Model:        cfg.DashScope.ImageEditModel,
		Function:     dashscope.FunctionDoodle,
		Prompt:       doodlePrompt(prompt, cfg.AgeRange),
		BaseImageURL: fit.DataURL(),
		Size:         image.AdaptiveSize(src.Width, src.Height),
		IsSketch:     &isSketch,
	})
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// StyleTransfer 全局风格化（stylization_all）
// 有风格图时先识图得到中文风格描述，并固定 strength 0.6。
func (b *DashScopeBackend) StyleTransfer(ctx context.Context, cfg AIConfig, content, style *image.Source, prompt string) (string, error) {
	fit, err := content.FitForDashScope()
	if err != nil {
		return "", err
	}

	req := dashscope.EditRequest{
		Model:        cfg.DashScope.ImageEditModel,
		Function:     dashscope.FunctionStylizationAll,
		Prompt:       prompt,
		BaseImageURL: fit.DataURL(),
		Size:         image.AdaptiveSize(content.Width, content.Height),
	}
	if style != nil {
		desc, err := b.Describe(ctx, cfg, style, styleAnalysisUserCN)
		if err != nil {
			return "", err
		}
		strength := styleStrength
		req.Prompt = stylizationPrompt(cleanPrompt(desc))
		req.Strength = &strength
	}

	res, err := b.exec.EditImage(ctx, cfg.BailianKey, req)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// PortraitStyle 人像风格重绘；自定义风格时 style_index 为 -1
func (b *DashScopeBackend) PortraitStyle(ctx context.Context, cfg AIConfig, portrait, style *image.Source, preset int) (string, error) {
	fit, err := portrait.FitForDashScope()
	if err != nil {
		return "", err
	}

	index, ref := preset, ""
	if style != nil {
		styleFit, err := style.FitForDashScope()
		if err != nil {
			return "", err
		}
		index, ref = dashscope.PortraitStyleIndexCustom, styleFit.DataURL()
	}

	res, err := b.exec.RepaintPortrait(ctx, cfg.BailianKey, cfg.DashScope.PortraitModel, fit.DataURL(), index, ref)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// ExampleImage 中文提示词直接文生图
func (b *DashScopeBackend) ExampleImage(ctx context.Context, cfg AIConfig, idea types.StyledIdea, _ string) (string, error) {
	res, err := b.exec.TextToImage(ctx, cfg.BailianKey, cfg.DashScope.TextToImageModel,
		ideaImagePrompt(idea, cfg.AgeRange), image.DefaultSize())
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// Describe 缩放后以 data URL 识图
func (b *DashScopeBackend) Describe(ctx context.Context, cfg AIConfig, src *image.Source, prompt string) (string, error) {
	fit, err := src.FitForDashScope()
	if err != nil {
		return "", err
	}
	res, err := b.exec.Vision(ctx, cfg.BailianKey, cfg.DashScope.VLModel, fit.DataURL(), prompt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
