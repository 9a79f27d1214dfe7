package structured

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/artspark/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"key":"value"}`,
			expected: `{"key":"value"}`,
		},
		{
			name:     "markdown code block",
			input:    "```json\n{\"key\":\"value\"}\n```",
			expected: `{"key":"value"}`,
		},
		{
			name:     "JSON with surrounding text",
			input:    "好的，结果如下: {\"ideas\":[{\"name\":\"星空\"}]} 希望你喜欢！",
			expected: `{"ideas":[{"name":"星空"}]}`,
		},
		{
			name:     "JSON array",
			input:    "Result: [1,2,3] end",
			expected: `[1,2,3]`,
		},
		{
			name:     "object wins when it opens first",
			input:    `note {"a":[1,2]} trailing ]`,
			expected: `{"a":[1,2]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	for _, input := range []string{
		"",
		"抱歉，我无法完成这个请求。",
		"} backwards {",
		"only an opener {",
	} {
		_, err := ExtractJSON(input)
		require.Error(t, err, input)
		assert.True(t, types.IsErrorCode(err, types.ErrMalformedOutput), input)
	}
}

func TestExtract_DecodeFailure(t *testing.T) {
	_, err := Extract[map[string]any]("here: {not json} done")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrMalformedOutput))
}

func TestExtract_Critique(t *testing.T) {
	type critique struct {
		Score         int      `json:"score"`
		Strengths     []string `json:"strengths"`
		Suggestions   []string `json:"suggestions"`
		Encouragement string   `json:"encouragement"`
	}

	text := "```json\n{\"score\": 86, \"strengths\": [\"色彩大胆\"], \"suggestions\": [\"注意透视\"], \"encouragement\": \"继续加油\"}\n```"
	got, err := Extract[critique](text)
	require.NoError(t, err)
	assert.Equal(t, 86, got.Score)
	assert.Equal(t, []string{"色彩大胆"}, got.Strengths)
	assert.Equal(t, "继续加油", got.Encouragement)
}

// 嵌入在说明文字和代码围栏中的对象，提取结果与直接解析一致
func TestExtract_EmbeddedEquivalence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		obj := rapid.MapOf(
			rapid.StringMatching(`[a-z]{1,8}`),
			rapid.StringMatching(`[a-zA-Z0-9 \p{Han}]{0,12}`),
		).Draw(t, "obj")
		prefix := rapid.StringMatching(`[a-zA-Z \p{Han}:,.]{0,20}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[a-zA-Z \p{Han}.!]{0,20}`).Draw(t, "suffix")
		fenced := rapid.Bool().Draw(t, "fenced")

		raw, err := json.Marshal(obj)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body := string(raw)
		if fenced {
			body = "```json\n" + body + "\n```"
		}

		got, err := Extract[map[string]string](prefix + body + suffix)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}

		var want map[string]string
		if err := json.Unmarshal(raw, &want); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("key %q: got %q, want %q", k, got[k], v)
			}
		}
	})
}
