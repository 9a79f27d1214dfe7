package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/types"
)

type fakeASRMode int

const (
	modeOK fakeASRMode = iota
	modeFailed
	modeEmpty
	modeHang
)

type fakeASR struct {
	mode fakeASRMode

	mu         sync.Mutex
	runTask    map[string]any
	frames     []int
	finishSeen bool
}

func (f *fakeASR) snapshot() (map[string]any, []int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runTask, append([]int(nil), f.frames...), f.finishSeen
}

func event(name string, extra map[string]any) map[string]any {
	header := map[string]any{"task_id": "t", "event": name}
	for k, v := range extra {
		header[k] = v
	}
	return map[string]any{"header": header, "payload": map[string]any{}}
}

func sentenceEvent(text string, end bool) map[string]any {
	msg := event(eventResultGenerated, nil)
	msg["payload"] = map[string]any{
		"output": map[string]any{
			"sentence": map[string]any{"text": text, "sentence_end": end, "begin_time": 0},
		},
	}
	return msg
}

func (f *fakeASR) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer asr-key" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"InvalidApiKey","message":"Invalid API-key provided."}`))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	ctx := context.Background()

	var run map[string]any
	if err := wsjson.Read(ctx, conn, &run); err != nil {
		return
	}
	f.mu.Lock()
	f.runTask = run
	f.mu.Unlock()

	if f.mode == modeFailed {
		wsjson.Write(ctx, conn, event(eventTaskFailed, map[string]any{
			"error_code":    "InvalidParameter",
			"error_message": "unsupported sample rate",
		}))
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	wsjson.Write(ctx, conn, event(eventTaskStarted, nil))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ == websocket.MessageBinary {
			f.mu.Lock()
			f.frames = append(f.frames, len(data))
			f.mu.Unlock()
			continue
		}
		if !strings.Contains(string(data), `"finish-task"`) {
			continue
		}
		f.mu.Lock()
		f.finishSeen = true
		f.mu.Unlock()
		break
	}

	switch f.mode {
	case modeHang:
		conn.Read(ctx)
		return
	case modeOK:
		wsjson.Write(ctx, conn, sentenceEvent("你好", false))
		wsjson.Write(ctx, conn, sentenceEvent("你好，小画家。", true))
		wsjson.Write(ctx, conn, sentenceEvent("我想画一只猫。", true))
	}
	wsjson.Write(ctx, conn, event(eventTaskFinished, nil))
	conn.Close(websocket.StatusNormalClosure, "")
}

func newTestClient(t *testing.T, mode fakeASRMode) (*Client, *fakeASR) {
	t.Helper()
	fake := &fakeASR{mode: mode}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Timeout: 2 * time.Second,
	}, zap.NewNop()), fake
}

func TestTranscribe(t *testing.T) {
	c, fake := newTestClient(t, modeOK)

	res, err := c.Transcribe(context.Background(), "asr-key", make([]byte, 8000), "WAV")
	require.NoError(t, err)
	assert.Equal(t, "你好，小画家。我想画一只猫。", res.Text)
	assert.Equal(t, []string{"你好，小画家。", "我想画一只猫。"}, res.Sentences)
	assert.NotEmpty(t, res.TaskID)

	run, frames, finished := fake.snapshot()
	assert.Equal(t, []int{3200, 3200, 1600}, frames)
	assert.True(t, finished)

	header := run["header"].(map[string]any)
	assert.Equal(t, "run-task", header["action"])
	assert.Equal(t, "duplex", header["streaming"])
	assert.Equal(t, res.TaskID, header["task_id"])

	payload := run["payload"].(map[string]any)
	assert.Equal(t, "paraformer-realtime-v2", payload["model"])
	assert.Equal(t, "recognition", payload["function"])
	params := payload["parameters"].(map[string]any)
	assert.Equal(t, "wav", params["format"])
	assert.EqualValues(t, 16000, params["sample_rate"])
	assert.Equal(t, true, params["disfluency_removal_enabled"])
	assert.Equal(t, []any{"zh", "en"}, params["language_hints"])
}

func TestTranscribe_TaskFailed(t *testing.T) {
	c, _ := newTestClient(t, modeFailed)

	_, err := c.Transcribe(context.Background(), "asr-key", make([]byte, 100), "pcm")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.Contains(t, err.Error(), "unsupported sample rate")
	assert.Contains(t, err.Error(), "InvalidParameter")
}

func TestTranscribe_EmptyTranscription(t *testing.T) {
	c, fake := newTestClient(t, modeEmpty)

	_, err := c.Transcribe(context.Background(), "asr-key", make([]byte, 100), "pcm")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamError))
	assert.Contains(t, err.Error(), "empty transcription")

	_, _, finished := fake.snapshot()
	assert.True(t, finished)
}

func TestTranscribe_HandshakeRejected(t *testing.T) {
	c, _ := newTestClient(t, modeOK)

	_, err := c.Transcribe(context.Background(), "wrong-key", make([]byte, 100), "pcm")
	require.Error(t, err)
	assert.True(t, types.IsAuthError(err))
}

func TestTranscribe_Timeout(t *testing.T) {
	c, _ := newTestClient(t, modeHang)
	c.cfg.Timeout = 100 * time.Millisecond

	_, err := c.Transcribe(context.Background(), "asr-key", make([]byte, 100), "pcm")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrUpstreamTimeout))
}

func TestTranscribe_Validation(t *testing.T) {
	c, fake := newTestClient(t, modeOK)
	ctx := context.Background()

	_, err := c.Transcribe(ctx, "", []byte{1}, "pcm")
	assert.True(t, types.IsErrorCode(err, types.ErrUnauthorized))

	_, err = c.Transcribe(ctx, "asr-key", nil, "pcm")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	_, err = c.Transcribe(ctx, "asr-key", []byte{1}, "flac")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	run, _, _ := fake.snapshot()
	assert.Nil(t, run, "validation failures never dial")
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"voice.wav", "wav", true},
		{"Voice.MP3", "mp3", true},
		{"clip.webm", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatFromFilename(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
	assert.Len(t, SupportedFormats(), 7)
}
