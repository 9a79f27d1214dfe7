package types

import (
	"encoding/json"
	"strings"
)

// StyledIdea 一条创意灵感
// ExampleImage 为 nil 表示该条示例图生成失败，序列化为 JSON null。
type StyledIdea struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Elements     Keywords `json:"elements"`
	ExampleImage *string  `json:"exampleImage"`
}

// MaxIdeaElements 每条创意最多保留的关键词数
const MaxIdeaElements = 3

// Normalize 校验模型给出的创意：必须有名称和至少一个关键词，多余关键词截断
func (i *StyledIdea) Normalize() error {
	i.Name = strings.TrimSpace(i.Name)
	if i.Name == "" {
		return NewMalformedOutputError("idea has no name", nil)
	}
	if len(i.Elements) == 0 {
		return NewMalformedOutputError("idea "+i.Name+" has no elements", nil)
	}
	if len(i.Elements) > MaxIdeaElements {
		i.Elements = i.Elements[:MaxIdeaElements]
	}
	return nil
}

// Keywords 关键词列表
// 模型有时返回 "彩虹, 毛毛虫, 叶子" 这样的字符串，有时返回数组，两种都接受。
type Keywords []string

// UnmarshalJSON implements json.Unmarshaler.
func (k *Keywords) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = compactKeywords(list)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = compactKeywords(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == ';' || r == '；'
	}))
	return nil
}

// String 以中文顿号连接，用于拼接图像提示词
func (k Keywords) String() string {
	return strings.Join(k, "、")
}

func compactKeywords(in []string) Keywords {
	out := make(Keywords, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ChatMessage 对话中的一条消息（前端传入的多轮历史）
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
