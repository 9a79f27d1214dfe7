package modelscope

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

// ProviderName 平台标识
const ProviderName = "modelscope"

const (
	headerAsyncMode = "X-ModelScope-Async-Mode"
	headerTaskType  = "X-ModelScope-Task-Type"
)

// Config 魔搭执行器配置
type Config struct {
	BaseURL      string
	ChatModel    string
	VLModel      string
	ImageModel   string
	Timeout      time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Provider 魔搭推理 API 执行器：对话、识图、生图（同步/异步）
type Provider struct {
	cfg    Config
	chat   *openaicompat.Provider
	client *http.Client
	poller image.Poller
	logger *zap.Logger
}

// New 创建魔搭执行器
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Provider{
		cfg: cfg,
		chat: openaicompat.New(openaicompat.Config{
			ProviderName: ProviderName,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.ChatModel,
			Timeout:      cfg.Timeout,
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

// Chat 文本对话
func (p *Provider) Chat(ctx context.Context, apiKey string, req *llm.ChatRequest) (*llm.ChatResult, error) {
	return p.chat.Completion(ctx, apiKey, req)
}

// VisionRequest 识图请求
type VisionRequest struct {
	Model    string
	ImageURL string
	Prompt   string
	System   string
}

// Vision 识图：图片 URL + 文本提示
func (p *Provider) Vision(ctx context.Context, apiKey string, req VisionRequest) (*llm.ChatResult, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.VLModel
	}
	msgs := make([]llm.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, llm.SystemMessage(req.System))
	}
	msgs = append(msgs, llm.UserMessage(req.Prompt, req.ImageURL))

	return p.chat.Completion(ctx, apiKey, &llm.ChatRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   1000,
		Temperature: 0.6,
	})
}

// ValidateKey 用 1 个 token 的对话验证密钥
// 密钥被拒绝返回 (false, nil)；网络等其他失败同样视为无效，但携带原因。
func (p *Provider) ValidateKey(ctx context.Context, apiKey string) (bool, error) {
	_, err := p.chat.Completion(ctx, apiKey, &llm.ChatRequest{
		Messages:  []llm.Message{llm.UserMessage("hello")},
		MaxTokens: 1,
	})
	if err == nil {
		return true, nil
	}
	if types.IsAuthError(err) {
		return false, nil
	}
	return false, err
}

// ImageRequest 生图请求
type ImageRequest struct {
	Model          string     `json:"model"`
	Prompt         string     `json:"prompt"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	Size           image.Size `json:"-"`
	ImageURL       string     `json:"image_url,omitempty"`
	Strength       float64    `json:"strength,omitempty"`
}

type imageBody struct {
	ImageRequest
	SizeText string `json:"size"`
}

func (p *Provider) body(req ImageRequest) imageBody {
	if req.Model == "" {
		req.Model = p.cfg.ImageModel
	}
	size := req.Size
	if size.Width == 0 || size.Height == 0 {
		size = image.DefaultSize()
	}
	return imageBody{ImageRequest: req, SizeText: size.ModelScope()}
}

// GenerateImage 同步生图
func (p *Provider) GenerateImage(ctx context.Context, apiKey string, req ImageRequest) (*llm.ImageResult, error) {
	var resp struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
		Message string `json:"message"`
	}
	err := providers.DoJSON(ctx, p.client, providers.JSONCall{
		URL:      providers.JoinURL(p.cfg.BaseURL, "v1/images/generations"),
		APIKey:   apiKey,
		Body:     p.body(req),
		Provider: ProviderName,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Images) == 0 || resp.Images[0].URL == "" {
		msg := resp.Message
		if msg == "" {
			msg = "no image in response"
		}
		return nil, types.NewUpstreamError(ProviderName, msg, nil)
	}
	return &llm.ImageResult{URL: resp.Images[0].URL}, nil
}

// SubmitImage 提交异步生图任务，返回任务 ID
func (p *Provider) SubmitImage(ctx context.Context, apiKey string, req ImageRequest) (string, error) {
	var resp struct {
		TaskID string `json:"task_id"`
	}
	err := providers.DoJSON(ctx, p.client, providers.JSONCall{
		URL:      providers.JoinURL(p.cfg.BaseURL, "v1/images/generations"),
		APIKey:   apiKey,
		Headers:  map[string]string{headerAsyncMode: "true"},
		Body:     p.body(req),
		Provider: ProviderName,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", types.NewUpstreamError(ProviderName, "async submission returned no task_id", nil)
	}
	return resp.TaskID, nil
}

// FetchTask 查询一次任务状态
func (p *Provider) FetchTask(ctx context.Context, apiKey, taskID string) (*image.Task, error) {
	var resp struct {
		TaskStatus   string   `json:"task_status"`
		OutputImages []string `json:"output_images"`
		TaskMessage  string   `json:"task_message"`
	}
	err := providers.DoJSON(ctx, p.client, providers.JSONCall{
		Method:   http.MethodGet,
		URL:      providers.JoinURL(p.cfg.BaseURL, "v1/tasks/"+taskID),
		APIKey:   apiKey,
		Headers:  map[string]string{headerTaskType: "image_generation"},
		Provider: ProviderName,
	}, &resp)
	if err != nil {
		return nil, err
	}

	task := &image.Task{ID: taskID}
	switch resp.TaskStatus {
	case "SUCCEED":
		task.Status = image.TaskSucceeded
		if len(resp.OutputImages) > 0 {
			task.ImageURL = resp.OutputImages[0]
		}
	case "FAILED":
		task.Status = image.TaskFailed
		task.Message = resp.TaskMessage
	case "PENDING":
		task.Status = image.TaskSubmitted
	default:
		task.Status = image.TaskRunning
	}
	return task, nil
}

// GenerateImageAsync 异步生图：提交后轮询直到终态
func (p *Provider) GenerateImageAsync(ctx context.Context, apiKey string, req ImageRequest) (*llm.ImageResult, error) {
	taskID, err := p.SubmitImage(ctx, apiKey, req)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("image task submitted", zap.String("task_id", taskID))

	task, err := p.poller.Wait(ctx, taskID, func(ctx context.Context, id string) (*image.Task, error) {
		return p.FetchTask(ctx, apiKey, id)
	})
	if err != nil {
		return nil, fmt.Errorf("modelscope image task: %w", err)
	}
	return &llm.ImageResult{URL: task.ImageURL, TaskID: taskID}, nil
}
