package credential

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/types"
)

// Credential 已验证的请求凭证
type Credential struct {
	ModelScopeKey string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Claims 会话令牌载荷
type Claims struct {
	ModelScopeKey string `json:"ms_key"`
	jwt.RegisteredClaims
}

// Resolver 凭证解析接口
type Resolver interface {
	Resolve(r *http.Request) (*Credential, error)
}

// Manager 会话令牌的签发与校验
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ Resolver = (*Manager)(nil)

// NewManager 创建令牌管理器
func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if len(cfg.Secret) < 16 {
		return nil, fmt.Errorf("auth secret must be at least 16 characters")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue 为已验证的魔搭 Key 签发会话令牌
func (m *Manager) Issue(modelScopeKey string) (string, time.Time, error) {
	if modelScopeKey == "" {
		return "", time.Time{}, types.NewValidationError("api key is required")
	}
	now := m.now()
	exp := now.Add(m.ttl)
	claims := Claims{
		ModelScopeKey: modelScopeKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, types.NewError(types.ErrInternalError, "failed to sign session token").WithCause(err)
	}
	return signed, exp, nil
}

// Verify 校验令牌并取出凭证
func (m *Manager) Verify(token string) (*Credential, error) {
	if token == "" {
		return nil, types.NewCredentialError("missing session token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, types.NewCredentialError("session token expired").WithCause(err)
		}
		return nil, types.NewCredentialError("invalid session token").WithCause(err)
	}
	if claims.ModelScopeKey == "" {
		return nil, types.NewCredentialError("session token carries no api key")
	}

	cred := &Credential{ModelScopeKey: claims.ModelScopeKey}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred, nil
}

// Resolve 从请求中取令牌并校验
func (m *Manager) Resolve(r *http.Request) (*Credential, error) {
	return m.Verify(TokenFromRequest(r))
}

// TokenFromRequest 查询参数 token 优先，其次 Authorization: Bearer
func TokenFromRequest(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
