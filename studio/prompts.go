package studio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/artspark/types"
)

// DefaultAgeRange 未指定年龄段时使用
const DefaultAgeRange = "6-8岁"

// AgeBand 年龄段分档，决定提示词的措辞
type AgeBand int

const (
	// BandMiddle 未归入两档的年龄段，不追加修饰词
	BandMiddle AgeBand = iota
	// BandYounger 低龄：明亮、卡通
	BandYounger
	// BandOlder 高龄：细节、写实
	BandOlder
)

// BandOf 返回年龄段所属分档
func BandOf(ageRange string) AgeBand {
	switch strings.TrimSpace(ageRange) {
	case "6-8岁", "9-10岁":
		return BandYounger
	case "13-15岁", "16-18岁":
		return BandOlder
	default:
		return BandMiddle
	}
}

// bandQualifier 图像提示词的年龄段修饰
func bandQualifier(ageRange string) string {
	switch BandOf(ageRange) {
	case BandYounger:
		return " 色彩明亮, 卡通风格。"
	case BandOlder:
		return " 细节丰富, 写实光影。"
	default:
		return ""
	}
}

// 魔搭生图的反向提示词
const (
	negColorize = "text, watermark, signature, blurry, low quality, worst quality, deformed, ugly, grayscale, monochrome, sketch, unfinished, lineart"
	negStyle    = "text, watermark, signature, blurry, low quality, worst quality, deformed, ugly, bad anatomy"
	negPortrait = "text, watermark, signature, blurry, ugly, deformed, disfigured, worst quality, low quality, multiple heads, bad anatomy, extra limbs, mutation, gender swap"
	negIdea     = "text, watermark, signature, blurry, low quality, ugly, deformed"
	negMood     = "text, watermark, signature, blurry, low quality, ugly, deformed, bad anatomy"
)

// 生图强度
const (
	styleStrength    = 0.6
	portraitStrength = 0.65
)

// presetStyles 人像工坊预设风格
var presetStyles = map[int]string{
	0: "复古漫画", 1: "3D童话", 2: "二次元", 3: "小清新", 4: "未来科技",
	5: "国画古风", 6: "将军百战", 7: "炫彩卡通", 8: "清雅国风", 9: "喜迎新年",
	14: "国风工笔", 15: "恭贺新禧", 30: "童话世界", 31: "黏土世界", 32: "像素世界",
	33: "冒险世界", 34: "日漫世界", 35: "3D世界", 36: "二次元世界", 37: "手绘世界",
	38: "蜡笔世界", 39: "冰箱贴世界", 40: "吧唧世界",
}

// PresetStyleName 预设风格名称，未知下标返回 "预设风格{n}"
func PresetStyleName(index int) string {
	if name, ok := presetStyles[index]; ok {
		return name
	}
	return fmt.Sprintf("预设风格%d", index)
}

// =============================================================================
// 翻译与识图
// =============================================================================

func translatorPrompt(hint, chinese string) string {
	return `<task>
Translate the Chinese description below into one vivid, concise English prompt for a diffusion image model.
Keep its meaning, add two or three quality modifiers such as "masterpiece", "best quality", "vibrant colors" or "detailed", and respect the context.
Output ONLY the English prompt, with no explanation and no markdown.
</task>
<context>
` + hint + `
</context>
<chinese_description>
` + chinese + `
</chinese_description>
`
}

func toChinesePrompt(lines []string) string {
	data, _ := json.Marshal(lines)
	return `<task>
Translate every string of the JSON list below into Simplified Chinese.
Return ONLY a JSON list of strings with the same length and order. Keep the text before each colon as a label.
</task>
<input>
` + string(data) + `
</input>
`
}

const styleAnalysisSystem = `You analyse the visual style of an image and answer with comma separated English keywords only.
Cover medium (oil painting, watercolor, 3d render...), texture, palette, lighting and mood. No sentences.`

const styleAnalysisUser = "Describe the visual style of this image as keywords."

// 百炼识图直接要中文风格描述
const styleAnalysisUserCN = "请用简短的中文关键词描述这张图片的绘画风格，包括媒介、笔触、色彩与氛围，用逗号分隔。"

// =============================================================================
// 图像功能模板
// =============================================================================

func colorizeTemplate(prompt string) string {
	return fmt.Sprintf("给这张线稿上色，风格：%s。要求：杰作, 最高质量, 色彩鲜艳, 细节丰富, 干净的阴影。", prompt)
}

func doodlePrompt(prompt, ageRange string) string {
	return prompt + "风格。" + bandQualifier(ageRange)
}

func stylizationPrompt(styleDesc string) string {
	return fmt.Sprintf("转换成 [%s] 风格", styleDesc)
}

func fusionPrompt(styleDesc string) string {
	return fmt.Sprintf("A masterpiece painting rendered in this style: [%s]. Keep the composition and subject of the input image.", styleDesc)
}

func portraitTemplate(styleName string) string {
	return fmt.Sprintf("一幅%s风格的肖像画，杰作, 最高质量, 细节丰富。必须保留照片中人物的面部特征。", styleName)
}

func portraitFromStyle(styleDesc string) string {
	return fmt.Sprintf("A portrait in the style of [%s], masterpiece, best quality. Preserve the facial features of the person.", styleDesc)
}

func ideaImagePrompt(idea types.StyledIdea, ageRange string) string {
	return fmt.Sprintf("绘画创意示例：%s，%s，包含元素：%s，适合%s的孩子。%s",
		idea.Name, idea.Description, idea.Elements.String(), ageRange, bandQualifier(ageRange))
}

// =============================================================================
// 文本功能模板
// =============================================================================

func audienceRules(ageRange string) string {
	switch BandOf(ageRange) {
	case BandOlder:
		return "用“同学你好！”开头，可以分析原因并解释基础艺术术语，但语言要浅显。"
	case BandYounger:
		return "用“你好呀，小朋友！”开头，像讲故事一样多用比喻，不要使用专业术语。"
	default:
		return "语气亲切，少用术语，必要时用生活中的例子解释。"
	}
}

func qaSystemPrompt(ageRange string) string {
	return fmt.Sprintf(`<role>你是友好的艺术老师“小艺”。</role>
<audience>学生年龄约为 %s。</audience>
<rules>
1. %s
2. 回答控制在 150 字左右，鼓励学生动手尝试。
</rules>`, ageRange, audienceRules(ageRange))
}

func ideasPrompt(theme, ageRange string) string {
	return fmt.Sprintf(`<role>你是富有想象力的儿童美术创意总监。</role>
<audience>为 %s 的学生提供绘画灵感。</audience>
<task>围绕主题“%s”给出 3 个独特有趣的绘画创意。</task>
<format>只返回如下 JSON，不要任何额外文字：
{"ideas":[{"name":"创意名称","description":"一句话描述","elements":"3 个关键词，用逗号分隔"}]}
</format>`, ageRange, theme)
}

func moodPrompt(mood, theme, ageRange string) string {
	return fmt.Sprintf(`<role>你是温柔的儿童艺术疗愈老师。</role>
<audience>学生年龄约为 %s，此刻的心情是“%s”。</audience>
<task>结合主题“%s”，设计 1 个能帮助表达或调节这种心情的绘画创意。%s</task>
<format>只返回如下 JSON，不要任何额外文字：
{"name":"创意名称","description":"一句话描述","elements":"3 个关键词，用逗号分隔"}
</format>`, ageRange, mood, theme, audienceRules(ageRange))
}

func artworkPrompt(info ArtworkInfo, ageRange string) string {
	return fmt.Sprintf(`<role>你是博物馆里擅长给孩子讲解名画的艺术老师。</role>
<audience>听众年龄约为 %s。%s</audience>
<artwork>
Title: %s
Artist: %s
Medium: %s
Date: %s
</artwork>
<task>用中文讲解这件作品：它画了什么、用了什么技法、为什么值得欣赏。200 字以内。</task>`,
		ageRange, audienceRules(ageRange), info.Title, info.Artist, info.Medium, info.Date)
}

func critiquePrompt(theme, ageRange string) string {
	return fmt.Sprintf(`<role>你是耐心的美术老师，正在点评学生的绘画作业。</role>
<audience>学生年龄约为 %s。%s</audience>
<task>作业主题是“%s”。观察图片，先肯定优点，再给出具体可操作的改进建议。</task>
<format>只返回如下 JSON，不要任何额外文字：
{"score":85,"strengths":["优点"],"suggestions":["建议"],"encouragement":"一句鼓励的话"}
score 为 0 到 100 的整数。
</format>`, ageRange, audienceRules(ageRange), theme)
}
