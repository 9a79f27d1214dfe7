package llm

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 一条对话消息
// Images 为图片 URL 或 data URL，仅识图模型使用；序列化时排在文本之前。
type Message struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// SystemMessage 构造系统消息
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage 构造用户消息，可附带图片
func UserMessage(content string, images ...string) Message {
	return Message{Role: RoleUser, Content: content, Images: images}
}

// HasImages 判断请求中是否有图片输入
func HasImages(msgs []Message) bool {
	for _, m := range msgs {
		if len(m.Images) > 0 {
			return true
		}
	}
	return false
}

// ChatRequest 对话请求
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// ChatUsage token 用量
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResult 对话/识图的统一结果
type ChatResult struct {
	ID           string    `json:"id,omitempty"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Role         Role      `json:"role"`
	Text         string    `json:"text"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        ChatUsage `json:"usage"`
}

// ImageResult 生图/改图的统一结果
type ImageResult struct {
	URL    string `json:"url"`
	TaskID string `json:"task_id,omitempty"`
}
