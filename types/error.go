package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Credential and request error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrAuthentication ErrorCode = "AUTHENTICATION"
)

// Upstream error codes
const (
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
)

// Local error codes
const (
	ErrMalformedOutput ErrorCode = "MALFORMED_OUTPUT"
	ErrStorage         ErrorCode = "STORAGE_ERROR"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError unwraps err into a *Error if one is in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsAuthError reports whether err means the credential is unusable, either
// because it is missing locally or because the vendor rejected it.
// A batch that sees one must stop: every following call would fail the same way.
func IsAuthError(err error) bool {
	switch GetErrorCode(err) {
	case ErrUnauthorized, ErrAuthentication:
		return true
	}
	return false
}

// =============================================================================
// 常用错误构造
// =============================================================================

// NewValidationError 请求缺少必填输入，在任何上游调用之前返回
func NewValidationError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewCredentialError 本地凭证缺失或无效
func NewCredentialError(message string) *Error {
	return NewError(ErrUnauthorized, message).WithHTTPStatus(http.StatusUnauthorized)
}

// NewMalformedOutputError 模型输出无法解析为约定的结构
func NewMalformedOutputError(message string, cause error) *Error {
	return NewError(ErrMalformedOutput, message).
		WithCause(cause).
		WithHTTPStatus(http.StatusInternalServerError)
}

// NewTimeoutError 异步任务轮询超出预算
func NewTimeoutError(provider, message string) *Error {
	return NewError(ErrUpstreamTimeout, message).
		WithHTTPStatus(http.StatusGatewayTimeout).
		WithProvider(provider)
}

// NewUpstreamError 上游返回的非鉴权、非限流失败
func NewUpstreamError(provider, message string, cause error) *Error {
	return NewError(ErrUpstreamError, message).
		WithCause(cause).
		WithHTTPStatus(http.StatusBadGateway).
		WithProvider(provider)
}
