package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/artspark/types"
)

// =============================================================================
// 平台与模型配置
// =============================================================================

// AIParams 每个功能请求都可携带的平台、模型与年龄段设置。
// 部分字段接受两种写法，由 studio.ResolveAIConfig 决定优先级。
// @Description 平台与模型配置
type AIParams struct {
	// 平台：modelscope 或 bailian
	APIPlatform string `json:"api_platform,omitempty" example:"modelscope"`
	// 百炼 API Key
	BailianAPIKey string `json:"bailian_api_key,omitempty"`

	ConfigAgeRange string `json:"config_age_range,omitempty"`
	AgeRange       string `json:"age_range,omitempty" example:"6-8岁"`

	ConfigChatModel  string `json:"config_chat_model,omitempty"`
	ChatModel        string `json:"chat_model,omitempty"`
	ConfigVLModel    string `json:"config_vl_model,omitempty"`
	VLModel          string `json:"vl_model,omitempty"`
	ConfigImageModel string `json:"config_image_model,omitempty"`
	ImageModel       string `json:"image_model,omitempty"`

	DSLLMID         string `json:"ds_llm_id,omitempty"`
	DSVLID          string `json:"ds_vl_id,omitempty"`
	DSImageEditID   string `json:"ds_image_edit_id,omitempty"`
	DSTextToImageID string `json:"ds_text_to_image_id,omitempty"`
	DSPortraitID    string `json:"ds_portrait_id,omitempty"`
}

// Params 转为参数表，空值不写入
func (p AIParams) Params() map[string]string {
	out := make(map[string]string, 16)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("api_platform", p.APIPlatform)
	set("bailian_api_key", p.BailianAPIKey)
	set("config_age_range", p.ConfigAgeRange)
	set("age_range", p.AgeRange)
	set("config_chat_model", p.ConfigChatModel)
	set("chat_model", p.ChatModel)
	set("config_vl_model", p.ConfigVLModel)
	set("vl_model", p.VLModel)
	set("config_image_model", p.ConfigImageModel)
	set("image_model", p.ImageModel)
	set("ds_llm_id", p.DSLLMID)
	set("ds_vl_id", p.DSVLID)
	set("ds_image_edit_id", p.DSImageEditID)
	set("ds_text_to_image_id", p.DSTextToImageID)
	set("ds_portrait_id", p.DSPortraitID)
	return out
}

// =============================================================================
// 会话
// =============================================================================

// SetKeyRequest 提交魔搭 API Key 换取会话令牌
type SetKeyRequest struct {
	APIKey string `json:"api_key" example:"ms-xxxxxxxx"`
}

// SetKeyResponse 会话令牌
type SetKeyResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckKeyResponse 令牌有效
type CheckKeyResponse struct {
	Status string `json:"status" example:"ok"`
}

// =============================================================================
// 图像功能
// =============================================================================

// ColorizeRequest 智能上色
type ColorizeRequest struct {
	AIParams
	// 线稿，base64 或 data URL
	Base64Image string `json:"base64_image"`
	Prompt      string `json:"prompt" example:"海洋"`
}

// CreativeWorkshopRequest 创意风格工坊
type CreativeWorkshopRequest struct {
	AIParams
	ContentImage string `json:"content_image"`
	StyleImage   string `json:"style_image,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
}

// PortraitWorkshopRequest 人像工坊
type PortraitWorkshopRequest struct {
	AIParams
	PortraitImage    string       `json:"portrait_image"`
	StyleImage       string       `json:"style_image,omitempty"`
	PresetStyleIndex *PresetIndex `json:"preset_style_index,omitempty"`
}

// PresetIndex 预设风格下标，前端可能传数字或数字字符串
type PresetIndex int

// UnmarshalJSON implements json.Unmarshaler.
func (p *PresetIndex) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = PresetIndex(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("preset_style_index must be an integer")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("preset_style_index must be an integer: %w", err)
	}
	*p = PresetIndex(n)
	return nil
}

// Int 返回下标指针，nil 表示未提供
func (p *PresetIndex) Int() *int {
	if p == nil {
		return nil
	}
	n := int(*p)
	return &n
}

// ImageResponse 图像类功能的返回
type ImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

// =============================================================================
// 文本功能
// =============================================================================

// AskQuestionRequest 艺术知识问答
type AskQuestionRequest struct {
	AIParams
	Messages []types.ChatMessage `json:"messages"`
}

// GenerateIdeasRequest 创意灵感
type GenerateIdeasRequest struct {
	AIParams
	Theme string `json:"theme" example:"春天"`
}

// MoodPaintingRequest 心情画板
type MoodPaintingRequest struct {
	AIParams
	Mood  string `json:"mood" example:"开心"`
	Theme string `json:"theme" example:"户外"`
}

// ArtworkExplainRequest 名画讲解，字段缺省为 N/A
type ArtworkExplainRequest struct {
	AIParams
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Medium string `json:"medium,omitempty"`
	Date   string `json:"date,omitempty"`
}

// CritiqueRequest 作业点评
type CritiqueRequest struct {
	AIParams
	Theme        string `json:"theme,omitempty" example:"我的家"`
	StudentImage string `json:"student_image"`
}

// TranscriptResponse 语音转文字结果
type TranscriptResponse struct {
	Text string `json:"text"`
}
