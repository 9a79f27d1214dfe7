package studio

import (
	"context"

	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/types"
)

// Backend 一个平台的功能实现
// Studio 在入口处按 AIConfig.Platform 选出 Backend，之后不再判断平台。
type Backend interface {
	Generator

	// Platform 返回平台标识
	Platform() types.Platform

	// Chat 多轮对话
	Chat(ctx context.Context, cfg AIConfig, msgs []llm.Message) (*llm.ChatResult, error)

	// Colorize 线稿上色，返回结果图 URL
	Colorize(ctx context.Context, cfg AIConfig, src *image.Source, prompt string) (string, error)

	// StyleTransfer 风格迁移；style 为 nil 时使用文本指令
	StyleTransfer(ctx context.Context, cfg AIConfig, content, style *image.Source, prompt string) (string, error)

	// PortraitStyle 人像风格化；style 为 nil 时使用预设风格
	PortraitStyle(ctx context.Context, cfg AIConfig, portrait, style *image.Source, preset int) (string, error)

	// ExampleImage 为一条创意生成示例图
	ExampleImage(ctx context.Context, cfg AIConfig, idea types.StyledIdea, negative string) (string, error)

	// Describe 识图，返回模型文本
	Describe(ctx context.Context, cfg AIConfig, src *image.Source, prompt string) (string, error)
}
