package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/BaSui01/artspark/api"
	"github.com/BaSui01/artspark/internal/credential"
	"github.com/BaSui01/artspark/types"
)

// =============================================================================
// 🔑 会话令牌 Handler
// =============================================================================

// KeyValidator 校验魔搭 API Key
type KeyValidator interface {
	ValidateKey(ctx context.Context, apiKey string) (bool, error)
}

// TokenIssuer 签发会话令牌
type TokenIssuer interface {
	Issue(modelScopeKey string) (string, time.Time, error)
}

// AuthHandler set_key / check_key
type AuthHandler struct {
	validator KeyValidator
	issuer    TokenIssuer
	resolver  credential.Resolver
	maxBody   int64
	logger    *zap.Logger
}

// NewAuthHandler 创建会话处理器
func NewAuthHandler(v KeyValidator, issuer TokenIssuer, resolver credential.Resolver, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		validator: v,
		issuer:    issuer,
		resolver:  resolver,
		maxBody:   64 << 10,
		logger:    logger.With(zap.String("handler", "auth")),
	}
}

// Register 挂载会话路由
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/set_key", h.HandleSetKey)
	mux.HandleFunc("GET /api/check_key", h.HandleCheckKey)
}

// HandleSetKey 校验魔搭 Key 并签发会话令牌
// @Summary 设置 API Key
// @Tags 会话
// @Accept json
// @Produce json
// @Param request body api.SetKeyRequest true "API Key"
// @Success 200 {object} Response{data=api.SetKeyResponse}
// @Failure 400 {object} Response "缺少 Key"
// @Failure 401 {object} Response "Key 无效"
// @Router /api/set_key [post]
func (h *AuthHandler) HandleSetKey(w http.ResponseWriter, r *http.Request) {
	var req api.SetKeyRequest
	if err := DecodeJSONBody(w, r, &req, h.maxBody); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		WriteError(w, r, types.NewValidationError("API key is required"), h.logger)
		return
	}
	if !printableASCII(key) {
		WriteError(w, r, types.NewValidationError("API key contains invalid characters"), h.logger)
		return
	}

	ok, err := h.validator.ValidateKey(r.Context(), key)
	if err != nil || !ok {
		h.logger.Info("api key rejected", zap.Bool("validated", ok), zap.Error(err))
		WriteError(w, r, types.NewCredentialError("API key is invalid, expired, or could not be verified"), h.logger)
		return
	}

	token, exp, err := h.issuer.Issue(key)
	if err != nil {
		WriteError(w, r, types.NewError(types.ErrInternalError, "failed to issue session token").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, r, api.SetKeyResponse{
		Message:   "API key set successfully",
		Token:     token,
		ExpiresAt: exp,
	})
}

// HandleCheckKey 校验会话令牌
// @Summary 检查令牌
// @Tags 会话
// @Produce json
// @Param token query string false "会话令牌"
// @Success 200 {object} Response{data=api.CheckKeyResponse}
// @Failure 401 {object} Response
// @Router /api/check_key [get]
func (h *AuthHandler) HandleCheckKey(w http.ResponseWriter, r *http.Request) {
	if _, err := h.resolver.Resolve(r); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.CheckKeyResponse{Status: "ok"})
}

// printableASCII 请求头只能携带可打印 ASCII
func printableASCII(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) {
			return false
		}
	}
	return true
}
