package structured

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/artspark/types"
)

// ExtractJSON 从模型输出中截取 JSON 文本
// 取第一个 { 或 [，再取与之配对的最后一个 } 或 ]，前后的说明文字与代码围栏一并丢弃。
func ExtractJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", types.NewMalformedOutputError("no JSON object found in model output", nil)
	}

	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", types.NewMalformedOutputError("unterminated JSON in model output", nil)
	}

	return text[start : end+1], nil
}

// Extract 截取并解码为 T
func Extract[T any](text string) (T, error) {
	var out T

	raw, err := ExtractJSON(text)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, types.NewMalformedOutputError("model output is not valid JSON", err)
	}
	return out, nil
}
