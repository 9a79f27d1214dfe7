package studio

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/llm/structured"
	"github.com/BaSui01/artspark/types"
)

// ChatChoice 问答结果中的一项
type ChatChoice struct {
	Message types.ChatMessage `json:"message"`
}

// ChatCompletion 问答结果，沿用 OpenAI choices 结构
type ChatCompletion struct {
	Choices []ChatChoice `json:"choices"`
}

// ArtworkInfo 名画元数据（英文原文）
type ArtworkInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Medium string `json:"medium"`
	Date   string `json:"date"`
}

// ArtworkExplanation 名画讲解
type ArtworkExplanation struct {
	AIExplanation         types.ChatMessage `json:"ai_explanation"`
	OriginalDescriptionZH string            `json:"original_description_zh"`
}

// Critique 作业点评
type Critique struct {
	Score         int      `json:"score"`
	Strengths     []string `json:"strengths"`
	Suggestions   []string `json:"suggestions"`
	Encouragement string   `json:"encouragement"`
}

// CritiqueRequest 作业点评请求
type CritiqueRequest struct {
	Theme        string
	StudentImage string
}

const defaultCritiqueTheme = "自由创作"

// AskQuestion 艺术知识问答（多轮）
func (s *Studio) AskQuestion(ctx context.Context, cfg AIConfig, history []types.ChatMessage) (out *ChatCompletion, err error) {
	ctx, end := s.observe(ctx, types.FeatureAskQuestion, cfg.Platform)
	defer func() { end(err) }()

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.SystemMessage(qaSystemPrompt(cfg.AgeRange)))
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: content})
	}
	if len(msgs) == 1 {
		return nil, types.NewValidationError("messages are required")
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	res, err := b.Chat(ctx, cfg, msgs)
	if err != nil {
		return nil, err
	}
	return &ChatCompletion{Choices: []ChatChoice{{
		Message: types.ChatMessage{Role: string(llm.RoleAssistant), Content: res.Text},
	}}}, nil
}

// ExplainArtwork 名画讲解，并把元数据翻译为中文
// 翻译失败或条数不符时回落到英文标签行。
func (s *Studio) ExplainArtwork(ctx context.Context, cfg AIConfig, info ArtworkInfo) (out *ArtworkExplanation, err error) {
	ctx, end := s.observe(ctx, types.FeatureArtworkExplain, cfg.Platform)
	defer func() { end(err) }()

	info = info.withDefaults()
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	text, err := b.Generate(ctx, cfg, artworkPrompt(info, cfg.AgeRange))
	if err != nil {
		return nil, err
	}

	return &ArtworkExplanation{
		AIExplanation:         types.ChatMessage{Role: string(llm.RoleAssistant), Content: strings.TrimSpace(text)},
		OriginalDescriptionZH: s.describeInChinese(ctx, b, cfg, info),
	}, nil
}

func (s *Studio) describeInChinese(ctx context.Context, b Backend, cfg AIConfig, info ArtworkInfo) string {
	lines := info.labeledLines()
	fallback := strings.Join(lines, "\n")
	if s.translator == nil {
		return fallback
	}
	zh, err := s.translator.ToChinese(ctx, b, cfg, lines)
	if err != nil {
		s.logger.Warn("artwork metadata translation failed, using original", zap.Error(err))
		return fallback
	}
	return strings.Join(zh, "\n")
}

func (a ArtworkInfo) withDefaults() ArtworkInfo {
	orNA := func(v string) string {
		if v = strings.TrimSpace(v); v == "" {
			return "N/A"
		}
		return v
	}
	return ArtworkInfo{
		Title:  orNA(a.Title),
		Artist: orNA(a.Artist),
		Medium: orNA(a.Medium),
		Date:   orNA(a.Date),
	}
}

func (a ArtworkInfo) labeledLines() []string {
	return []string{
		"Title: " + a.Title,
		"Artist: " + a.Artist,
		"Medium: " + a.Medium,
		"Date: " + a.Date,
	}
}

// CritiqueHomework 作业点评：识图后解析结构化点评
func (s *Studio) CritiqueHomework(ctx context.Context, cfg AIConfig, req CritiqueRequest) (out *Critique, err error) {
	ctx, end := s.observe(ctx, types.FeatureCritiqueHomework, cfg.Platform)
	defer func() { end(err) }()

	src, err := image.DecodeDataURL("student_image", req.StudentImage)
	if err != nil {
		return nil, err
	}
	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		theme = defaultCritiqueTheme
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := b.Describe(ctx, cfg, src, critiquePrompt(theme, cfg.AgeRange))
	if err != nil {
		return nil, err
	}
	c, err := structured.Extract[Critique](raw)
	if err != nil {
		return nil, err
	}
	if c.Score < 0 || c.Score > 100 {
		return nil, types.NewMalformedOutputError(fmt.Sprintf("critique score %d out of range", c.Score), nil)
	}
	return &c, nil
}
