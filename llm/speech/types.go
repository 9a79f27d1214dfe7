package speech

import (
	"path/filepath"
	"strings"
	"time"
)

// TranscriptResult 识别结果
type TranscriptResult struct {
	Text      string        `json:"text"`
	Sentences []string      `json:"sentences,omitempty"`
	TaskID    string        `json:"task_id,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Config Paraformer 客户端配置
type Config struct {
	URL        string        `json:"url" yaml:"url"`
	Model      string        `json:"model" yaml:"model"`
	SampleRate int           `json:"sample_rate" yaml:"sample_rate"`
	ChunkSize  int           `json:"chunk_size" yaml:"chunk_size"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// 默认值
const (
	DefaultURL        = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	DefaultModel      = "paraformer-realtime-v2"
	DefaultSampleRate = 16000
	// DefaultChunkSize 16kHz 16bit 单声道约 100ms
	DefaultChunkSize = 3200
)

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		URL:        DefaultURL,
		Model:      DefaultModel,
		SampleRate: DefaultSampleRate,
		ChunkSize:  DefaultChunkSize,
		Timeout:    60 * time.Second,
	}
}

var supportedFormats = []string{"pcm", "wav", "mp3", "opus", "speex", "aac", "amr"}

// SupportedFormats 返回支持的音频格式
func SupportedFormats() []string {
	out := make([]string, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

// NormalizeFormat 规范化格式名，不支持时返回 false
func NormalizeFormat(format string) (string, bool) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	for _, s := range supportedFormats {
		if f == s {
			return f, true
		}
	}
	return "", false
}

// FormatFromFilename 按扩展名推断格式
func FormatFromFilename(name string) (string, bool) {
	return NormalizeFormat(filepath.Ext(name))
}
