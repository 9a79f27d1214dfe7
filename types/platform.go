package types

// Platform 标识一个 AI 供应商后端
type Platform string

const (
	// PlatformModelScope 魔搭社区推理 API（默认）
	PlatformModelScope Platform = "modelscope"
	// PlatformDashScope 阿里云百炼 / 灵积
	PlatformDashScope Platform = "bailian"
)

// ParsePlatform 解析平台选择器，未知值回退到 ModelScope
func ParsePlatform(s string) Platform {
	switch Platform(s) {
	case PlatformDashScope:
		return PlatformDashScope
	default:
		return PlatformModelScope
	}
}

// String implements fmt.Stringer.
func (p Platform) String() string { return string(p) }

// Feature 是一次生成调用对应的产品功能
type Feature string

const (
	FeatureColorize         Feature = "colorize"
	FeatureStyleTransfer    Feature = "style_transfer"
	FeaturePortraitStyle    Feature = "portrait_style"
	FeatureIdeaGeneration   Feature = "idea_generation"
	FeatureMoodPainting     Feature = "mood_painting"
	FeatureArtworkExplain   Feature = "artwork_explain"
	FeatureAskQuestion      Feature = "ask_question"
	FeatureCritiqueHomework Feature = "critique_homework"
	FeatureTranscribe       Feature = "transcribe"
)
