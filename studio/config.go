package studio

import (
	"strings"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/types"
)

// ModelScopeModels 魔搭模型选择
type ModelScopeModels struct {
	ChatModel  string `json:"chat_model"`
	VLModel    string `json:"vl_model"`
	ImageModel string `json:"image_model"`
}

// DashScopeModels 百炼模型选择
type DashScopeModels struct {
	ChatModel        string `json:"ds_llm_id"`
	VLModel          string `json:"ds_vl_id"`
	ImageEditModel   string `json:"ds_image_edit_id"`
	TextToImageModel string `json:"ds_text_to_image_id"`
	PortraitModel    string `json:"ds_portrait_id"`
}

// AIConfig 单次请求解析后的运行配置，构建后只读
type AIConfig struct {
	Platform   types.Platform
	AgeRange   string
	ModelScope ModelScopeModels
	DashScope  DashScopeModels

	// ModelScopeKey 来自会话令牌，由 handler 在解析后填入
	ModelScopeKey string
	// BailianKey 百炼 API Key，随请求参数传入
	BailianKey string
}

// Credential 返回所选平台的凭证
func (c AIConfig) Credential() string {
	if c.Platform == types.PlatformDashScope {
		return c.BailianKey
	}
	return c.ModelScopeKey
}

// Defaults 进程级默认值
type Defaults struct {
	AgeRange   string
	Platform   types.Platform
	ModelScope ModelScopeModels
	DashScope  DashScopeModels
}

// DefaultsFrom 从配置构建默认值
func DefaultsFrom(cfg *config.Config) Defaults {
	return Defaults{
		AgeRange: cfg.Studio.DefaultAgeRange,
		Platform: types.ParsePlatform(cfg.Studio.DefaultPlatform),
		ModelScope: ModelScopeModels{
			ChatModel:  cfg.ModelScope.ChatModel,
			VLModel:    cfg.ModelScope.VLModel,
			ImageModel: cfg.ModelScope.ImageModel,
		},
		DashScope: DashScopeModels{
			ChatModel:        cfg.DashScope.ChatModel,
			VLModel:          cfg.DashScope.VLModel,
			ImageEditModel:   cfg.DashScope.ImageEditModel,
			TextToImageModel: cfg.DashScope.TextToImageModel,
			PortraitModel:    cfg.DashScope.PortraitModel,
		},
	}
}

// 请求参数键，部分字段接受两种写法，前者优先
var (
	keyAgeRange   = []string{"config_age_range", "age_range"}
	keyChatModel  = []string{"config_chat_model", "chat_model"}
	keyVLModel    = []string{"config_vl_model", "vl_model"}
	keyImageModel = []string{"config_image_model", "image_model"}
)

// ResolveAIConfig 由请求参数与默认值构建 AIConfig
// 纯函数：未设置或空白的字段取默认值，未知平台回落到魔搭。凭证不在此解析。
func ResolveAIConfig(params map[string]string, d Defaults) AIConfig {
	platform := d.Platform
	if platform == "" {
		platform = types.PlatformModelScope
	}
	if v := lookup(params, "api_platform"); v != "" {
		platform = types.ParsePlatform(v)
	}

	ageRange := d.AgeRange
	if ageRange == "" {
		ageRange = DefaultAgeRange
	}

	return AIConfig{
		Platform: platform,
		AgeRange: pick(params, keyAgeRange, ageRange),
		ModelScope: ModelScopeModels{
			ChatModel:  pick(params, keyChatModel, d.ModelScope.ChatModel),
			VLModel:    pick(params, keyVLModel, d.ModelScope.VLModel),
			ImageModel: pick(params, keyImageModel, d.ModelScope.ImageModel),
		},
		DashScope: DashScopeModels{
			ChatModel:        pick(params, []string{"ds_llm_id"}, d.DashScope.ChatModel),
			VLModel:          pick(params, []string{"ds_vl_id"}, d.DashScope.VLModel),
			ImageEditModel:   pick(params, []string{"ds_image_edit_id"}, d.DashScope.ImageEditModel),
			TextToImageModel: pick(params, []string{"ds_text_to_image_id"}, d.DashScope.TextToImageModel),
			PortraitModel:    pick(params, []string{"ds_portrait_id"}, d.DashScope.PortraitModel),
		},
		BailianKey: lookup(params, "bailian_api_key"),
	}
}

func pick(params map[string]string, keys []string, def string) string {
	for _, k := range keys {
		if v := lookup(params, k); v != "" {
			return v
		}
	}
	return def
}

func lookup(params map[string]string, key string) string {
	if params == nil {
		return ""
	}
	return strings.TrimSpace(params[key])
}
