package studio

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/artspark/llm/structured"
	"github.com/BaSui01/artspark/types"
)

// 批量示例图结果
const (
	batchItemOK      = "ok"
	batchItemFailed  = "failed"
	batchItemAborted = "aborted"
)

type ideasPayload struct {
	Ideas []types.StyledIdea `json:"ideas"`
}

// GenerateIdeas 生成创意并并发配示例图
// 结果保持模型给出的顺序；单条配图失败置 null，凭证类失败使整批失败。
func (s *Studio) GenerateIdeas(ctx context.Context, cfg AIConfig, theme string) (ideas []types.StyledIdea, err error) {
	ctx, end := s.observe(ctx, types.FeatureIdeaGeneration, cfg.Platform)
	defer func() { end(err) }()

	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, types.NewValidationError("theme is required")
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := b.Generate(ctx, cfg, ideasPrompt(theme, cfg.AgeRange))
	if err != nil {
		return nil, err
	}
	payload, err := structured.Extract[ideasPayload](raw)
	if err != nil {
		return nil, err
	}
	if len(payload.Ideas) == 0 {
		return nil, types.NewMalformedOutputError("model returned no ideas", nil)
	}
	for i := range payload.Ideas {
		if err := payload.Ideas[i].Normalize(); err != nil {
			return nil, err
		}
	}

	return s.illustrate(ctx, b, cfg, payload.Ideas, negIdea)
}

// illustrate 以有界并发为每条创意生成示例图，按下标写回
func (s *Studio) illustrate(ctx context.Context, b Backend, cfg AIConfig, ideas []types.StyledIdea, negative string) ([]types.StyledIdea, error) {
	out := make([]types.StyledIdea, len(ideas))
	copy(out, ideas)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i := range out {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			url, err := b.ExampleImage(gctx, cfg, out[i], negative)
			if err != nil {
				if types.IsAuthError(err) {
					s.recordBatchItem(batchItemAborted)
					return err
				}
				s.logger.Warn("example image failed",
					zap.Int("index", i),
					zap.String("idea", out[i].Name),
					zap.Error(err))
				s.recordBatchItem(batchItemFailed)
				out[i].ExampleImage = nil
				return nil
			}
			s.recordBatchItem(batchItemOK)
			out[i].ExampleImage = &url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MoodPainting 心情画板：一条创意加一张示例图
func (s *Studio) MoodPainting(ctx context.Context, cfg AIConfig, mood, theme string) (idea *types.StyledIdea, err error) {
	ctx, end := s.observe(ctx, types.FeatureMoodPainting, cfg.Platform)
	defer func() { end(err) }()

	mood, theme = strings.TrimSpace(mood), strings.TrimSpace(theme)
	if mood == "" || theme == "" {
		return nil, types.NewValidationError("mood and theme are required")
	}
	b, err := s.backend(cfg)
	if err != nil {
		return nil, err
	}

	raw, err := b.Generate(ctx, cfg, moodPrompt(mood, theme, cfg.AgeRange))
	if err != nil {
		return nil, err
	}
	parsed, err := structured.Extract[types.StyledIdea](raw)
	if err != nil {
		return nil, err
	}
	if err := parsed.Normalize(); err != nil {
		return nil, err
	}

	url, err := b.ExampleImage(ctx, cfg, parsed, negMood)
	switch {
	case err == nil:
		parsed.ExampleImage = &url
	case types.IsAuthError(err):
		return nil, err
	default:
		s.logger.Warn("mood example image failed", zap.String("idea", parsed.Name), zap.Error(err))
		parsed.ExampleImage = nil
	}
	return &parsed, nil
}
