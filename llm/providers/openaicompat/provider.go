// =============================================================================
// ArtSpark OpenAI-Compatible Chat Executor
// =============================================================================
// Shared chat/vision executor for every OpenAI-compatible endpoint the service
// talks to: ModelScope inference API and DashScope compatible mode.
// The credential travels per call; the provider itself holds no key.
// =============================================================================

package openaicompat

import (
	"context"
	"net/http"
	"time"

	"github.com/BaSui01/artspark/internal/tlsutil"
	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/providers"
	"go.uber.org/zap"
)

// Config holds the configuration for an OpenAI-compatible endpoint.
type Config struct {
	// ProviderName is the platform identifier written into errors and results.
	ProviderName string

	// BaseURL is the API root, e.g. "https://api-inference.modelscope.cn/".
	BaseURL string

	// DefaultModel is used when the request does not name a model.
	DefaultModel string

	// Timeout is the HTTP client timeout. Defaults to 60s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// Headers are extra static headers sent with every request.
	Headers map[string]string
}

// Provider executes chat completions against one OpenAI-compatible endpoint.
type Provider struct {
	Cfg    Config
	Client *http.Client
	Logger *zap.Logger
}

// New creates a new OpenAI-compatible executor with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		Cfg:    cfg,
		Client: tlsutil.SecureHTTPClient(timeout),
		Logger: logger.With(zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// Completion performs a non-streaming chat completion with the given credential.
// Messages carrying images are sent as image_url + text content parts.
func (p *Provider) Completion(ctx context.Context, apiKey string, req *llm.ChatRequest) (*llm.ChatResult, error) {
	model := providers.ChooseModel(req, p.Cfg.DefaultModel)

	body := providers.OpenAICompatRequest{
		Model:       model,
		Messages:    providers.ConvertMessagesToOpenAI(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	start := time.Now()
	var oaResp providers.OpenAICompatResponse
	err := providers.DoJSON(ctx, p.Client, providers.JSONCall{
		URL:      providers.JoinURL(p.Cfg.BaseURL, p.Cfg.EndpointPath),
		APIKey:   apiKey,
		Headers:  p.Cfg.Headers,
		Body:     body,
		Provider: p.Name(),
	}, &oaResp)
	if err != nil {
		p.Logger.Debug("chat completion failed",
			zap.String("model", model),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return nil, err
	}

	result, err := providers.ToChatResult(oaResp, p.Name())
	if err != nil {
		return nil, err
	}
	if result.Model == "" {
		result.Model = model
	}

	p.Logger.Debug("chat completion",
		zap.String("model", model),
		zap.Bool("vision", llm.HasImages(req.Messages)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))
	return result, nil
}
