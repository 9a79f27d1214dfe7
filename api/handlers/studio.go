package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/api"
	"github.com/BaSui01/artspark/internal/ctxkeys"
	"github.com/BaSui01/artspark/llm/speech"
	"github.com/BaSui01/artspark/studio"
	"github.com/BaSui01/artspark/types"
)

// =============================================================================
// 🎨 功能接口 Handler
// =============================================================================

// StudioService 功能编排，由 *studio.Studio 实现
type StudioService interface {
	Colorize(ctx context.Context, cfg studio.AIConfig, req studio.ColorizeRequest) (*studio.ImageOutput, error)
	StyleTransfer(ctx context.Context, cfg studio.AIConfig, req studio.StyleTransferRequest) (*studio.ImageOutput, error)
	PortraitStyle(ctx context.Context, cfg studio.AIConfig, req studio.PortraitRequest) (*studio.ImageOutput, error)
	AskQuestion(ctx context.Context, cfg studio.AIConfig, history []types.ChatMessage) (*studio.ChatCompletion, error)
	GenerateIdeas(ctx context.Context, cfg studio.AIConfig, theme string) ([]types.StyledIdea, error)
	MoodPainting(ctx context.Context, cfg studio.AIConfig, mood, theme string) (*types.StyledIdea, error)
	ExplainArtwork(ctx context.Context, cfg studio.AIConfig, info studio.ArtworkInfo) (*studio.ArtworkExplanation, error)
	CritiqueHomework(ctx context.Context, cfg studio.AIConfig, req studio.CritiqueRequest) (*studio.Critique, error)
	Transcribe(ctx context.Context, cfg studio.AIConfig, req studio.TranscribeRequest) (*speech.TranscriptResult, error)
}

var _ StudioService = (*studio.Studio)(nil)

// StudioHandler 功能接口处理器
type StudioHandler struct {
	studio   StudioService
	defaults studio.Defaults
	maxBody  int64
	logger   *zap.Logger
}

// NewStudioHandler 创建功能处理器，maxBody<=0 时使用 DefaultMaxBodyBytes
func NewStudioHandler(s StudioService, defaults studio.Defaults, maxBody int64, logger *zap.Logger) *StudioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &StudioHandler{
		studio:   s,
		defaults: defaults,
		maxBody:  maxBody,
		logger:   logger.With(zap.String("handler", "studio")),
	}
}

// Register 挂载全部功能路由
func (h *StudioHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/colorize-lineart", h.HandleColorize)
	mux.HandleFunc("POST /api/creative-workshop", h.HandleCreativeWorkshop)
	mux.HandleFunc("POST /api/portrait-workshop", h.HandlePortraitWorkshop)
	mux.HandleFunc("POST /api/ask-question", h.HandleAskQuestion)
	mux.HandleFunc("POST /api/generate-ideas", h.HandleGenerateIdeas)
	mux.HandleFunc("POST /api/mood-painting", h.HandleMoodPainting)
	mux.HandleFunc("POST /api/gallery/explain", h.HandleExplainArtwork)
	mux.HandleFunc("POST /api/critique-homework", h.HandleCritiqueHomework)
	mux.HandleFunc("POST /api/audio-to-text", h.HandleAudioToText)
}

// resolve 由请求参数构建 AIConfig，并填入会话中的魔搭 Key
func (h *StudioHandler) resolve(r *http.Request, params map[string]string) studio.AIConfig {
	cfg := studio.ResolveAIConfig(params, h.defaults)
	cfg.ModelScopeKey, _ = ctxkeys.SessionKey(r.Context())
	return cfg
}

type paramCarrier interface {
	Params() map[string]string
}

// serveJSON 解码请求、执行功能并写回统一响应
func serveJSON[Req paramCarrier, Out any](h *StudioHandler, w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, cfg studio.AIConfig, req Req) (Out, error)) {
	var req Req
	if err := DecodeJSONBody(w, r, &req, h.maxBody); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	out, err := run(r.Context(), h.resolve(r, req.Params()), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, out)
}

// HandleColorize AI 智能上色
// @Summary 线稿上色
// @Tags 图像
// @Accept json
// @Produce json
// @Param request body api.ColorizeRequest true "上色请求"
// @Success 200 {object} Response{data=api.ImageResponse}
// @Router /api/colorize-lineart [post]
func (h *StudioHandler) HandleColorize(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.ColorizeRequest) (api.ImageResponse, error) {
		out, err := h.studio.Colorize(ctx, cfg, studio.ColorizeRequest{Image: req.Base64Image, Prompt: req.Prompt})
		if err != nil {
			return api.ImageResponse{}, err
		}
		return api.ImageResponse{ImageURL: out.ImageURL}, nil
	})
}

// HandleCreativeWorkshop 创意风格工坊
// @Summary 风格迁移
// @Tags 图像
// @Accept json
// @Produce json
// @Param request body api.CreativeWorkshopRequest true "风格迁移请求"
// @Success 200 {object} Response{data=api.ImageResponse}
// @Router /api/creative-workshop [post]
func (h *StudioHandler) HandleCreativeWorkshop(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.CreativeWorkshopRequest) (api.ImageResponse, error) {
		out, err := h.studio.StyleTransfer(ctx, cfg, studio.StyleTransferRequest{
			ContentImage: req.ContentImage,
			StyleImage:   req.StyleImage,
			Prompt:       req.Prompt,
		})
		if err != nil {
			return api.ImageResponse{}, err
		}
		return api.ImageResponse{ImageURL: out.ImageURL}, nil
	})
}

// HandlePortraitWorkshop 人像工坊
// @Summary 人像风格化
// @Tags 图像
// @Accept json
// @Produce json
// @Param request body api.PortraitWorkshopRequest true "人像请求"
// @Success 200 {object} Response{data=api.ImageResponse}
// @Router /api/portrait-workshop [post]
func (h *StudioHandler) HandlePortraitWorkshop(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.PortraitWorkshopRequest) (api.ImageResponse, error) {
		out, err := h.studio.PortraitStyle(ctx, cfg, studio.PortraitRequest{
			PortraitImage:    req.PortraitImage,
			StyleImage:       req.StyleImage,
			PresetStyleIndex: req.PresetStyleIndex.Int(),
		})
		if err != nil {
			return api.ImageResponse{}, err
		}
		return api.ImageResponse{ImageURL: out.ImageURL}, nil
	})
}

// HandleAskQuestion 艺术知识问答
// @Summary 多轮问答
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body api.AskQuestionRequest true "问答请求"
// @Success 200 {object} Response{data=studio.ChatCompletion}
// @Router /api/ask-question [post]
func (h *StudioHandler) HandleAskQuestion(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.AskQuestionRequest) (*studio.ChatCompletion, error) {
		return h.studio.AskQuestion(ctx, cfg, req.Messages)
	})
}

// HandleGenerateIdeas 创意灵感
// @Summary 生成创意与示例图
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body api.GenerateIdeasRequest true "灵感请求"
// @Success 200 {object} Response{data=[]types.StyledIdea}
// @Router /api/generate-ideas [post]
func (h *StudioHandler) HandleGenerateIdeas(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.GenerateIdeasRequest) ([]types.StyledIdea, error) {
		return h.studio.GenerateIdeas(ctx, cfg, req.Theme)
	})
}

// HandleMoodPainting 心情画板
// @Summary 心情创意
// @Tags 文本
// @Accept json
// @Produce json
// @Param request body api.MoodPaintingRequest true "心情请求"
// @Success 200 {object} Response{data=types.StyledIdea}
// @Router /api/mood-painting [post]
func (h *StudioHandler) HandleMoodPainting(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.MoodPaintingRequest) (*types.StyledIdea, error) {
		return h.studio.MoodPainting(ctx, cfg, req.Mood, req.Theme)
	})
}

// HandleExplainArtwork 名画讲解
// @Summary 名画讲解
// @Tags 鉴赏
// @Accept json
// @Produce json
// @Param request body api.ArtworkExplainRequest true "作品信息"
// @Success 200 {object} Response{data=studio.ArtworkExplanation}
// @Router /api/gallery/explain [post]
func (h *StudioHandler) HandleExplainArtwork(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.ArtworkExplainRequest) (*studio.ArtworkExplanation, error) {
		return h.studio.ExplainArtwork(ctx, cfg, studio.ArtworkInfo{
			Title:  req.Title,
			Artist: req.Artist,
			Medium: req.Medium,
			Date:   req.Date,
		})
	})
}

// HandleCritiqueHomework 作业点评
// @Summary 作业点评
// @Tags 鉴赏
// @Accept json
// @Produce json
// @Param request body api.CritiqueRequest true "作业"
// @Success 200 {object} Response{data=studio.Critique}
// @Router /api/critique-homework [post]
func (h *StudioHandler) HandleCritiqueHomework(w http.ResponseWriter, r *http.Request) {
	serveJSON(h, w, r, func(ctx context.Context, cfg studio.AIConfig, req api.CritiqueRequest) (*studio.Critique, error) {
		return h.studio.CritiqueHomework(ctx, cfg, studio.CritiqueRequest{
			Theme:        req.Theme,
			StudentImage: req.StudentImage,
		})
	})
}

// HandleAudioToText 语音转文字，multipart 字段 file，其余表单字段作为配置参数
// @Summary 语音转文字
// @Tags 语音
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "音频文件"
// @Param format formData string false "音频格式，缺省按扩展名推断"
// @Success 200 {object} Response{data=api.TranscriptResponse}
// @Router /api/audio-to-text [post]
func (h *StudioHandler) HandleAudioToText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, types.NewValidationError("audio file is too large").
				WithHTTPStatus(http.StatusRequestEntityTooLarge), h.logger)
			return
		}
		WriteError(w, r, types.NewValidationError("invalid multipart form").WithCause(err), h.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, types.NewValidationError("no audio file uploaded"), h.logger)
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		WriteError(w, r, types.NewValidationError("no selected file"), h.logger)
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, r, types.NewValidationError("failed to read audio file").WithCause(err), h.logger)
		return
	}

	params := make(map[string]string, len(r.MultipartForm.Value))
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	out, err := h.studio.Transcribe(r.Context(), h.resolve(r, params), studio.TranscribeRequest{
		Audio:    audio,
		Format:   params["format"],
		Filename: header.Filename,
	})
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.TranscriptResponse{Text: out.Text})
}
