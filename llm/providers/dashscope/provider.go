package dashscope

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/internal/tlsutil"
	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/llm/providers"
	"github.com/BaSui01/artspark/llm/providers/openaicompat"
	"github.com/BaSui01/artspark/types"
)

// ProviderName 平台标识（与请求中的 api_platform 取值一致）
const ProviderName = "bailian"

const headerAsync = "X-DashScope-Async"

// 图像编辑 function 取值
const (
	FunctionDoodle          = "doodle"
	FunctionStylizationAll  = "stylization_all"
	FunctionDescriptionEdit = "description_edit"
	FunctionColorization    = "colorization"
	FunctionRemoveWatermark = "remove_watermark"
)

// promptRequired 这些 function 必须携带 prompt
var promptRequired = map[string]bool{
	FunctionDoodle:          true,
	FunctionStylizationAll:  true,
	FunctionDescriptionEdit: true,
	FunctionColorization:    true,
	FunctionRemoveWatermark: true,
}

// Config 百炼执行器配置
type Config struct {
	BaseURL           string
	CompatibleBaseURL string
	ChatModel         string
	VLModel           string
	ImageEditModel    string
	TextToImageModel  string
	PortraitModel     string
	Timeout           time.Duration
	PollInterval      time.Duration
	PollTimeout       time.Duration
}

// Provider 百炼 API 执行器
type Provider struct {
	cfg    Config
	chat   *openaicompat.Provider
	client *http.Client
	poller image.Poller
	logger *zap.Logger
}

// New 创建百炼执行器
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Provider{
		cfg: cfg,
		chat: openaicompat.New(openaicompat.Config{
			ProviderName: ProviderName,
			BaseURL:      cfg.CompatibleBaseURL,
			DefaultModel: cfg.ChatModel,
			Timeout:      cfg.Timeout,
			EndpointPath: "/chat/completions",
		}, logger),
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		poller: image.Poller{
			Interval: cfg.PollInterval,
			Timeout:  cfg.PollTimeout,
			Provider: ProviderName,
		},
		logger: logger.With(zap.String("provider", ProviderName)),
	}
}

// Name 返回平台标识
func (p *Provider) Name() string { return ProviderName }

// OnPoll 设置轮询回调
func (p *Provider) OnPoll(fn func(*image.Task)) *Provider {
	p.poller.OnPoll = fn
	return p
}

// Chat 文本对话（兼容模式）
func (p *Provider) Chat(ctx context.Context, apiKey string, req *llm.ChatRequest) (*llm.ChatResult, error) {
	return p.chat.Completion(ctx, apiKey, req)
}

// =============================================================================
// 识图
// =============================================================================

type vlContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type vlMessage struct {
	Role    string      `json:"role"`
	Content []vlContent `json:"content"`
}

// Vision 识图：图片（URL 或 data URL）+ 文本提示
func (p *Provider) Vision(ctx context.Context, apiKey, model, imageURL, prompt string) (*llm.ChatResult, error) {
	if model == "" {
		model = p.cfg.VLModel
	}
	body := map[string]any{
		"model": model,
		"input": map[string]any{
			"messages": []vlMessage{{
				Role:    string(llm.RoleUser),
				Content: []vlContent{{Image: imageURL}, {Text: prompt}},
			}},
		},
	}

	var resp struct {
		RequestID string `json:"request_id"`
		Output    struct {
			Choices []struct {
				FinishReason string `json:"finish_reason"`
				Message      struct {
					Role    string      `json:"role"`
					Content []vlContent `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"output"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	err := providers.DoJSON(ctx, p.client, providers.JSONCall{
		URL:      providers.JoinURL(p.cfg.BaseURL, "services/aigc/multimodal-generation/generation"),
		APIKey:   apiKey,
		Body:     body,
		Provider: ProviderName,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Output.Choices) == 0 {
		return nil, types.NewUpstreamError(ProviderName, "vision response has no choices", nil)
	}
	choice := resp.Output.Choices[0]
	var text string
	for _, c := range choice.Message.Content {
		if c.Text != "" {
			text = c.Text
			break
		}
	}
	if text == "" {
		return nil, types.NewUpstreamError(ProviderName, "vision response has no text", nil)
	}

	return &llm.ChatResult{
		ID:           resp.RequestID,
		Provider:     ProviderName,
		Model:        model,
		Role:         llm.RoleAssistant,
		Text:         text,
		FinishReason: choice.FinishReason,
		Usage: llm.ChatUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// =============================================================================
// 异步图像任务
// =============================================================================

// EditRequest 通用图像编辑（wanx2.1-imageedit）
type EditRequest struct {
	Model        string
	Function     string
	Prompt       string
	BaseImageURL string
	Size         image.Size
	IsSketch     *bool
	Strength     *float64
}

// EditImage 图像编辑：提交后轮询
func (p *Provider) EditImage(ctx context.Context, apiKey string, req EditRequest) (*llm.ImageResult, error) {
	if promptRequired[req.Function] && req.Prompt == "" {
		return nil, types.NewValidationError(fmt.Sprintf("prompt is required for function %q", req.Function))
	}
	if req.BaseImageURL == "" {
		return nil, types.NewValidationError("base image is required")
	}

	input := map[string]any{
		"function":       req.Function,
		"base_image_url": req.BaseImageURL,
	}
	if req.Prompt != "" {
		input["prompt"] = req.Prompt
	}

	size := req.Size
	if size.Width == 0 || size.Height == 0 {
		size = image.DefaultSize()
	}
	params := map[string]any{"n": 1, "size": size.DashScope()}
	if req.Function == FunctionDoodle && req.IsSketch != nil {
		params["is_sketch"] = *req.IsSketch
	}
	if req.Function == FunctionStylizationAll && req.Strength != nil {
		params["strength"] = *req.Strength
	}

	return p.run(ctx, apiKey, "services/aigc/image2image/image-synthesis", map[string]any{
		"model":      orDefault(req.Model, p.cfg.ImageEditModel),
		"input":      input,
		"parameters": params,
	})
}

// TextToImage 文生图（wanx2.1-t2i-turbo），model 为空时使用默认模型
func (p *Provider) TextToImage(ctx context.Context, apiKey, model, prompt string, size image.Size) (*llm.ImageResult, error) {
	if prompt == "" {
		return nil, types.NewValidationError("prompt is required")
	}
	if size.Width == 0 || size.Height == 0 {
		size = image.DefaultSize()
	}
	return p.run(ctx, apiKey, "services/aigc/text2image/image-synthesis", map[string]any{
		"model": orDefault(model, p.cfg.TextToImageModel),
		"input": map[string]any{"prompt": prompt},
		"parameters": map[string]any{
			"size":          size.DashScope(),
			"n":             1,
			"prompt_extend": true,
		},
	})
}

// PortraitStyleIndexCustom 使用参考图风格时的 style_index
const PortraitStyleIndexCustom = -1

// RepaintPortrait 人像风格重绘（wanx-style-repaint-v1）
// styleIndex 为 -1 时使用 styleRefURL 作为风格参考。
func (p *Provider) RepaintPortrait(ctx context.Context, apiKey, model, imageURL string, styleIndex int, styleRefURL string) (*llm.ImageResult, error) {
	input := map[string]any{
		"image_url":   imageURL,
		"style_index": styleIndex,
	}
	if styleIndex == PortraitStyleIndexCustom {
		if styleRefURL == "" {
			return nil, types.NewValidationError("style reference image is required for custom style")
		}
		input["style_ref_url"] = styleRefURL
	}
	return p.run(ctx, apiKey, "services/aigc/image-generation/generation", map[string]any{
		"model": orDefault(model, p.cfg.PortraitModel),
		"input": input,
	})
}

// SubmitTask 提交异步任务，返回 output.task_id
func (p *Provider) SubmitTask(ctx context.Context, apiKey, path string, body any) (string, error) {
	var resp struct {
		Output struct {
			TaskID     string `json:"task_id"`
			TaskStatus string `json:"task_status"`
		} `json:"output"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	err := providers.DoJSON(ctx, p.client, providers.JSONCall{
		URL:      providers.JoinURL(p.cfg.BaseURL, path),
		APIKey:   apiKey,
		Headers:  map[string]string{headerAsync: "enable"},
		Body:     body,
		Provider: ProviderName,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Output.TaskID == "" {
		return "", types.NewUpstreamError(ProviderName,
			fmt.Sprintf("task submission returned no task_id: %s %s", resp.Code, resp.Message), nil)
	}
	return resp.Output.TaskID, nil
}

// FetchTask 查询一次任务状态
func (p *Provider) FetchTask(ctx context.Context, apiKey, taskID string) (*image.Task, error) {
	var resp struct {
		Output struct {
			TaskStatus string `json:"task_status"`
			Results    []struct {
				URL string `json:"url"`
			} `json:"results"`
			Message string `json:"message"`
		} `json:"output"`
	}
	err := providers.DoJSON(ctx, p.client, providers.JSONCall{
		Method:   http.MethodGet,
		URL:      providers.JoinURL(p.cfg.BaseURL, "tasks/"+taskID),
		APIKey:   apiKey,
		Provider: ProviderName,
	}, &resp)
	if err != nil {
		return nil, err
	}

	task := &image.Task{ID: taskID}
	switch resp.Output.TaskStatus {
	case "PENDING":
		task.Status = image.TaskSubmitted
	case "RUNNING":
		task.Status = image.TaskRunning
	case "SUCCEEDED":
		task.Status = image.TaskSucceeded
		if len(resp.Output.Results) > 0 {
			task.ImageURL = resp.Output.Results[0].URL
		}
	case "FAILED":
		task.Status = image.TaskFailed
		task.Message = resp.Output.Message
	default:
		task.Status = image.TaskFailed
		task.Message = fmt.Sprintf("unknown task status %q", resp.Output.TaskStatus)
	}
	return task, nil
}

func (p *Provider) run(ctx context.Context, apiKey, path string, body any) (*llm.ImageResult, error) {
	taskID, err := p.SubmitTask(ctx, apiKey, path, body)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("image task submitted", zap.String("task_id", taskID), zap.String("path", path))

	task, err := p.poller.Wait(ctx, taskID, func(ctx context.Context, id string) (*image.Task, error) {
		return p.FetchTask(ctx, apiKey, id)
	})
	if err != nil {
		return nil, fmt.Errorf("dashscope image task: %w", err)
	}
	return &llm.ImageResult{URL: task.ImageURL, TaskID: taskID}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
