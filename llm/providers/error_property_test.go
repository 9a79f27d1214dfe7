package providers

import (
	"net/http"
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/artspark/types"
)

// 任意厂商状态码都映射为 401 或 502，且只有 429 与 5xx 可重试
func TestMapHTTPError_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.IntRange(400, 599).Draw(t, "status")
		msg := rapid.StringMatching(`[a-zA-Z ]{0,16}`).Draw(t, "msg")

		err := MapHTTPError(status, msg, "modelscope")

		switch err.HTTPStatus {
		case http.StatusUnauthorized:
			if !types.IsAuthError(err) {
				t.Fatalf("status %d: 401 without auth code %s", status, err.Code)
			}
		case http.StatusBadGateway:
			wantCode := types.ErrUpstreamError
			if status == http.StatusTooManyRequests {
				wantCode = types.ErrRateLimited
			}
			if err.Code != wantCode {
				t.Fatalf("status %d: code %s", status, err.Code)
			}
			if err.Retryable != (status >= 500 || status == http.StatusTooManyRequests) {
				t.Fatalf("status %d: retryable=%v", status, err.Retryable)
			}
		default:
			t.Fatalf("status %d mapped to %d", status, err.HTTPStatus)
		}
		if err.Provider != "modelscope" {
			t.Fatalf("provider %q", err.Provider)
		}
	})
}
