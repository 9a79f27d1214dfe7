package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/artspark/internal/tlsutil"
	"github.com/BaSui01/artspark/llm/providers"
	"github.com/BaSui01/artspark/types"
)

// ProviderName 语音识别走百炼平台
const ProviderName = "bailian"

// 协议事件
const (
	eventTaskStarted     = "task-started"
	eventResultGenerated = "result-generated"
	eventTaskFinished    = "task-finished"
	eventTaskFailed      = "task-failed"
)

type wsHeader struct {
	Action       string `json:"action,omitempty"`
	TaskID       string `json:"task_id"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type runTaskPayload struct {
	TaskGroup  string         `json:"task_group"`
	Task       string         `json:"task"`
	Function   string         `json:"function"`
	Model      string         `json:"model"`
	Parameters map[string]any `json:"parameters"`
	Input      struct{}       `json:"input"`
}

type finishTaskPayload struct {
	Input struct{} `json:"input"`
}

type outboundMessage struct {
	Header  wsHeader `json:"header"`
	Payload any      `json:"payload"`
}

type sentence struct {
	Text        string `json:"text"`
	SentenceEnd bool   `json:"sentence_end"`
	BeginTime   int64  `json:"begin_time"`
	EndTime     *int64 `json:"end_time"`
}

type inboundMessage struct {
	Header  wsHeader `json:"header"`
	Payload struct {
		Output struct {
			Sentence sentence `json:"sentence"`
		} `json:"output"`
	} `json:"payload"`
}

// Client Paraformer 实时识别客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建识别客户端，零值字段使用默认配置
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: tlsutil.WebSocketHTTPClient(),
		logger:     logger.With(zap.String("component", "paraformer")),
	}
}

// Transcribe 把整段音频推流识别，返回拼接后的文本
func (c *Client) Transcribe(ctx context.Context, apiKey string, audio []byte, format string) (*TranscriptResult, error) {
	if apiKey == "" {
		return nil, types.NewCredentialError("speech recognition requires a Bailian API key")
	}
	if len(audio) == 0 {
		return nil, types.NewValidationError("audio is empty")
	}
	f, ok := NormalizeFormat(format)
	if !ok {
		return nil, types.NewValidationError(fmt.Sprintf("unsupported audio format %q, allowed: %s",
			format, strings.Join(supportedFormats, ", ")))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	taskID := uuid.NewString()
	log := c.logger.With(zap.String("task_id", taskID), zap.String("format", f), zap.Int("bytes", len(audio)))

	conn, resp, err := websocket.Dial(ctx, c.cfg.URL, &websocket.DialOptions{
		HTTPClient: c.httpClient,
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + apiKey}},
	})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			msg := providers.ReadErrorMessage(resp.Body)
			if msg == "" {
				msg = err.Error()
			}
			return nil, providers.MapHTTPError(resp.StatusCode, msg, ProviderName)
		}
		return nil, c.wrapErr(ctx, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := wsjson.Write(ctx, conn, outboundMessage{
		Header: wsHeader{Action: "run-task", TaskID: taskID, Streaming: "duplex"},
		Payload: runTaskPayload{
			TaskGroup: "audio",
			Task:      "asr",
			Function:  "recognition",
			Model:     c.cfg.Model,
			Parameters: map[string]any{
				"format":                     f,
				"sample_rate":                c.cfg.SampleRate,
				"disfluency_removal_enabled": true,
				"language_hints":             []string{"zh", "en"},
			},
		},
	}); err != nil {
		return nil, c.wrapErr(ctx, err)
	}

	if err := c.awaitStarted(ctx, conn); err != nil {
		return nil, err
	}
	log.Debug("asr task started")

	var sentences []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.stream(gctx, conn, taskID, audio)
	})
	g.Go(func() error {
		var err error
		sentences, err = c.collect(gctx, conn)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("asr task failed", zap.Error(err))
		return nil, err
	}

	text := strings.Join(sentences, "")
	if strings.TrimSpace(text) == "" {
		return nil, types.NewUpstreamError(ProviderName, "empty transcription", nil)
	}

	log.Info("asr task finished",
		zap.Int("sentences", len(sentences)),
		zap.Duration("duration", time.Since(start)))

	return &TranscriptResult{
		Text:      text,
		Sentences: sentences,
		TaskID:    taskID,
		Duration:  time.Since(start),
	}, nil
}

func (c *Client) awaitStarted(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg inboundMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return c.wrapErr(ctx, err)
		}
		switch msg.Header.Event {
		case eventTaskStarted:
			return nil
		case eventTaskFailed:
			return taskFailed(msg.Header)
		}
	}
}

// stream 按块推送音频，最后发送 finish-task
func (c *Client) stream(ctx context.Context, conn *websocket.Conn, taskID string, audio []byte) error {
	for off := 0; off < len(audio); off += c.cfg.ChunkSize {
		end := min(off+c.cfg.ChunkSize, len(audio))
		if err := conn.Write(ctx, websocket.MessageBinary, audio[off:end]); err != nil {
			return c.wrapErr(ctx, err)
		}
	}
	err := wsjson.Write(ctx, conn, outboundMessage{
		Header:  wsHeader{Action: "finish-task", TaskID: taskID, Streaming: "duplex"},
		Payload: finishTaskPayload{},
	})
	if err != nil {
		return c.wrapErr(ctx, err)
	}
	return nil
}

// collect 读取事件直到 task-finished，只保留已结束的句子
func (c *Client) collect(ctx context.Context, conn *websocket.Conn) ([]string, error) {
	var sentences []string
	for {
		var msg inboundMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return nil, c.wrapErr(ctx, err)
		}
		switch msg.Header.Event {
		case eventResultGenerated:
			s := msg.Payload.Output.Sentence
			if s.SentenceEnd && s.Text != "" {
				sentences = append(sentences, s.Text)
			}
		case eventTaskFinished:
			return sentences, nil
		case eventTaskFailed:
			return nil, taskFailed(msg.Header)
		}
	}
}

func (c *Client) wrapErr(ctx context.Context, err error) error {
	var tErr *types.Error
	if errors.As(err, &tErr) {
		return tErr
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewTimeoutError(ProviderName, "speech recognition timed out").WithCause(err)
	}
	return providers.TransportError(ProviderName, err)
}

func taskFailed(h wsHeader) *types.Error {
	msg := h.ErrorMessage
	if msg == "" {
		msg = "recognition task failed"
	}
	if h.ErrorCode != "" {
		msg = fmt.Sprintf("%s (code: %s)", msg, h.ErrorCode)
	}
	return types.NewUpstreamError(ProviderName, msg, nil)
}
