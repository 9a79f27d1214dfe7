package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/types"
)

// maxErrorBody 错误响应体最多读取的字节数
const maxErrorBody = 4096

// MapHTTPError 将供应商 HTTP 状态码映射为 types.Error
// 401/403 视为供应商拒绝凭证；429 为限流；其余一律按上游错误（502）对外暴露。
func MapHTTPError(status int, msg string, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.NewError(types.ErrAuthentication, msg).
			WithHTTPStatus(http.StatusUnauthorized).
			WithProvider(provider)
	case http.StatusTooManyRequests:
		// 厂商限流仍是上游故障，对调用方表现为 502；本服务自身限流才是 429
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(provider)
	default:
		return types.NewError(types.ErrUpstreamError, fmt.Sprintf("upstream status %d: %s", status, msg)).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(status >= 500).
			WithProvider(provider)
	}
}

// ReadErrorMessage 读取响应体中的错误消息
// 依次尝试 OpenAI 风格 {"error":{"message"}}、百炼风格 {"code","message"}，
// 失败则回退到原始文本。
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		if errResp.Error.Message != "" {
			if errResp.Error.Type != "" {
				return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
			}
			return errResp.Error.Message
		}
		if errResp.Message != "" {
			if errResp.Code != "" {
				return fmt.Sprintf("%s (code: %s)", errResp.Message, errResp.Code)
			}
			return errResp.Message
		}
	}

	return strings.TrimSpace(string(data))
}

// TransportError 网络层失败（连接、超时、解码）
func TransportError(provider string, err error) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewTimeoutError(provider, err.Error()).WithCause(err)
	}
	return types.NewUpstreamError(provider, err.Error(), err).WithRetryable(true)
}

// BearerTokenHeaders 标准 Bearer 认证头
func BearerTokenHeaders(r *http.Request, apiKey string) {
	r.Header.Set("Authorization", "Bearer "+apiKey)
	r.Header.Set("Content-Type", "application/json")
}

// SafeCloseBody 安全关闭 HTTP 响应体并忽略错误
func SafeCloseBody(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}

// JSONCall 描述一次 JSON 请求
type JSONCall struct {
	Method   string
	URL      string
	APIKey   string
	Headers  map[string]string
	Body     any
	Provider string
}

// DoJSON 发送 JSON 请求并把 2xx 响应解码到 out
// 非 2xx 经 MapHTTPError 转换，网络错误经 TransportError 转换。
func DoJSON(ctx context.Context, client *http.Client, call JSONCall, out any) error {
	var reader io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	method := call.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, call.URL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	BearerTokenHeaders(httpReq, call.APIKey)
	for k, v := range call.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return TransportError(call.Provider, err)
	}
	defer SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return MapHTTPError(resp.StatusCode, ReadErrorMessage(resp.Body), call.Provider)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return TransportError(call.Provider, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// JoinURL 拼接基础地址与路径，兼容基础地址是否以 / 结尾
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// =============================================================================
// OpenAI 兼容 API 通用类型（魔搭与百炼兼容模式共用）
// =============================================================================

// OpenAICompatImageURL 图片输入
type OpenAICompatImageURL struct {
	URL string `json:"url"`
}

// OpenAICompatContentPart 多模态内容片段
type OpenAICompatContentPart struct {
	Type     string                `json:"type"`
	Text     string                `json:"text,omitempty"`
	ImageURL *OpenAICompatImageURL `json:"image_url,omitempty"`
}

// OpenAICompatMessage 请求消息，Content 为字符串或内容片段数组
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// OpenAICompatRequest 聊天完成请求
type OpenAICompatRequest struct {
	Model       string                `json:"model"`
	Messages    []OpenAICompatMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float32               `json:"temperature,omitempty"`
	Stream      bool                  `json:"stream"`
}

// OpenAICompatChoice 响应中的单个选项
type OpenAICompatChoice struct {
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// OpenAICompatUsage token 用量
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 聊天完成响应
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
}

// ConvertMessagesToOpenAI 将 llm.Message 转换为 OpenAI 兼容格式
// 带图片的消息转为内容片段数组，图片在前、文本在后。
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Images) == 0 {
			out = append(out, OpenAICompatMessage{Role: string(m.Role), Content: m.Content})
			continue
		}
		parts := make([]OpenAICompatContentPart, 0, len(m.Images)+1)
		for _, img := range m.Images {
			parts = append(parts, OpenAICompatContentPart{
				Type:     "image_url",
				ImageURL: &OpenAICompatImageURL{URL: img},
			})
		}
		if m.Content != "" {
			parts = append(parts, OpenAICompatContentPart{Type: "text", Text: m.Content})
		}
		out = append(out, OpenAICompatMessage{Role: string(m.Role), Content: parts})
	}
	return out
}

// ToChatResult 将 OpenAI 兼容响应转换为 llm.ChatResult
func ToChatResult(oa OpenAICompatResponse, provider string) (*llm.ChatResult, error) {
	if len(oa.Choices) == 0 {
		return nil, types.NewUpstreamError(provider, "response has no choices", nil)
	}
	c := oa.Choices[0]
	result := &llm.ChatResult{
		ID:           oa.ID,
		Provider:     provider,
		Model:        oa.Model,
		Role:         llm.RoleAssistant,
		Text:         strings.TrimSpace(c.Message.Content),
		FinishReason: c.FinishReason,
	}
	if oa.Usage != nil {
		result.Usage = llm.ChatUsage{
			PromptTokens:     oa.Usage.PromptTokens,
			CompletionTokens: oa.Usage.CompletionTokens,
			TotalTokens:      oa.Usage.TotalTokens,
		}
	}
	return result, nil
}

// ChooseModel 请求指定的模型优先，否则使用默认模型
func ChooseModel(req *llm.ChatRequest, defaultModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return defaultModel
}
