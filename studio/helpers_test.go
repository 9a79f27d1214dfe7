package studio

import (
	"bytes"
	"context"
	"encoding/base64"
	stdimage "image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/artspark/internal/database"
	"github.com/BaSui01/artspark/llm"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/types"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// fakeBackend 记录调用并按注入的函数返回
type fakeBackend struct {
	platform types.Platform

	generate func(prompt string) (string, error)
	example  func(idea types.StyledIdea) (string, error)
	describe func(prompt string) (string, error)
	chat     func(msgs []llm.Message) (*llm.ChatResult, error)

	mu       sync.Mutex
	prompts  []string
	examples []string
	chats    [][]llm.Message
	images   []string
}

func newFakeBackend(p types.Platform) *fakeBackend {
	return &fakeBackend{platform: p}
}

func (f *fakeBackend) Platform() types.Platform { return f.platform }

func (f *fakeBackend) Generate(_ context.Context, _ AIConfig, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.generate == nil {
		return "", nil
	}
	return f.generate(prompt)
}

func (f *fakeBackend) Chat(_ context.Context, _ AIConfig, msgs []llm.Message) (*llm.ChatResult, error) {
	f.mu.Lock()
	f.chats = append(f.chats, msgs)
	f.mu.Unlock()
	if f.chat == nil {
		return &llm.ChatResult{Role: llm.RoleAssistant, Text: "ok"}, nil
	}
	return f.chat(msgs)
}

func (f *fakeBackend) record(op string) {
	f.mu.Lock()
	f.images = append(f.images, op)
	f.mu.Unlock()
}

func (f *fakeBackend) Colorize(_ context.Context, _ AIConfig, _ *image.Source, _ string) (string, error) {
	f.record("colorize")
	return "https://cdn.example/colorized.png", nil
}

func (f *fakeBackend) StyleTransfer(_ context.Context, _ AIConfig, _, style *image.Source, _ string) (string, error) {
	if style != nil {
		f.record("style:image")
	} else {
		f.record("style:text")
	}
	return "https://cdn.example/styled.png", nil
}

func (f *fakeBackend) PortraitStyle(_ context.Context, _ AIConfig, _, style *image.Source, preset int) (string, error) {
	if style != nil {
		f.record("portrait:image")
	} else {
		f.record("portrait:preset")
	}
	return "https://cdn.example/portrait.png", nil
}

func (f *fakeBackend) ExampleImage(_ context.Context, _ AIConfig, idea types.StyledIdea, _ string) (string, error) {
	f.mu.Lock()
	f.examples = append(f.examples, idea.Name)
	f.mu.Unlock()
	if f.example == nil {
		return "https://cdn.example/" + idea.Name + ".png", nil
	}
	return f.example(idea)
}

func (f *fakeBackend) Describe(_ context.Context, _ AIConfig, _ *image.Source, prompt string) (string, error) {
	f.record("describe")
	if f.describe == nil {
		return "", nil
	}
	return f.describe(prompt)
}

func (f *fakeBackend) exampleCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.examples...)
}

func (f *fakeBackend) imageCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.images...)
}

// fakeUsage 收集台账记录
type fakeUsage struct {
	mu   sync.Mutex
	rows []database.UsageRecord
}

func (u *fakeUsage) Record(_ context.Context, rec database.UsageRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rows = append(u.rows, rec)
}

func (u *fakeUsage) records() []database.UsageRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]database.UsageRecord(nil), u.rows...)
}

func msConfig() AIConfig {
	return AIConfig{
		Platform:      types.PlatformModelScope,
		AgeRange:      "6-8岁",
		ModelScopeKey: "ms-key",
		ModelScope: ModelScopeModels{
			ChatModel:  "Qwen/Qwen3-30B-A3B-Instruct-2507",
			VLModel:    "Qwen/Qwen3-VL-8B-Instruct",
			ImageModel: "black-forest-labs/FLUX.1-Krea-dev",
		},
	}
}

func dsConfig() AIConfig {
	return AIConfig{
		Platform:   types.PlatformDashScope,
		AgeRange:   "6-8岁",
		BailianKey: "ds-key",
		DashScope: DashScopeModels{
			ChatModel:        "qwen-plus",
			VLModel:          "qwen-vl-plus",
			ImageEditModel:   "wanx2.1-imageedit",
			TextToImageModel: "wanx2.1-t2i-turbo",
			PortraitModel:    "wanx-style-repaint-v1",
		},
	}
}

// counterValue 读取计数器中任一标签等于 label 的样本
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func readDir(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "uploads"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
