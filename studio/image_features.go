package studio

import (
	"context"
	"strings"

	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/types"
)

// ImageOutput 图像类功能的统一返回
type ImageOutput struct {
	ImageURL string `json:"imageUrl"`
}

// ColorizeRequest 智能上色
type ColorizeRequest struct {
	// Image 线稿，base64 或 data URL
	Image  string
	Prompt string
}

// StyleTransferRequest 创意风格工坊
type StyleTransferRequest struct {
	ContentImage string
	StyleImage   string
	Prompt       string
}

// PortraitRequest 人像工坊
type PortraitRequest struct {
	PortraitImage    string
	StyleImage       string
	PresetStyleIndex *int
}

// Colorize 线稿上色
func (s *Studio) Colorize(ctx context.Context, cfg AIConfig, req ColorizeRequest) (out *ImageOutput, err error) {
	ctx, end := s.observe(ctx, types.FeatureColorize, cfg.Platform)
	defer func() { end(err) }()

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, types.NewValidationError("prompt is required")
	}
	src, err := image.DecodeDataURL("base64_image", req.Image)
	if err != nil {
		return nil, err
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	url, err := b.Colorize(ctx, cfg, src, prompt)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{ImageURL: url}, nil
}

// StyleTransfer 风格迁移：风格图优先，其次文本指令
func (s *Studio) StyleTransfer(ctx context.Context, cfg AIConfig, req StyleTransferRequest) (out *ImageOutput, err error) {
	ctx, end := s.observe(ctx, types.FeatureStyleTransfer, cfg.Platform)
	defer func() { end(err) }()

	content, err := image.DecodeDataURL("content_image", req.ContentImage)
	if err != nil {
		return nil, err
	}
	var style *image.Source
	if strings.TrimSpace(req.StyleImage) != "" {
		if style, err = image.DecodeDataURL("style_image", req.StyleImage); err != nil {
			return nil, err
		}
	}
	prompt := strings.TrimSpace(req.Prompt)
	if style == nil && prompt == "" {
		return nil, types.NewValidationError("style_image or prompt is required")
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	url, err := b.StyleTransfer(ctx, cfg, content, style, prompt)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{ImageURL: url}, nil
}

// PortraitStyle 人像风格化：风格图优先，其次预设风格
func (s *Studio) PortraitStyle(ctx context.Context, cfg AIConfig, req PortraitRequest) (out *ImageOutput, err error) {
	ctx, end := s.observe(ctx, types.FeaturePortraitStyle, cfg.Platform)
	defer func() { end(err) }()

	portrait, err := image.DecodeDataURL("portrait_image", req.PortraitImage)
	if err != nil {
		return nil, err
	}
	var style *image.Source
	if strings.TrimSpace(req.StyleImage) != "" {
		if style, err = image.DecodeDataURL("style_image", req.StyleImage); err != nil {
			return nil, err
		}
	}
	if style == nil && req.PresetStyleIndex == nil {
		return nil, types.NewValidationError("style_image or preset_style_index is required")
	}
	preset := 0
	if req.PresetStyleIndex != nil {
		preset = *req.PresetStyleIndex
		if style == nil && preset < 0 {
			return nil, types.NewValidationError("preset_style_index must not be negative")
		}
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	url, err := b.PortraitStyle(ctx, cfg, portrait, style, preset)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{ImageURL: url}, nil
}
