package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/internal/credential"
	"github.com/BaSui01/artspark/internal/ctxkeys"
	"github.com/BaSui01/artspark/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func gatherSeries(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ctxkeys.RequestID(r.Context())
	})
	handler := Chain(inner, SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.Header.Set("X-Request-ID", "client-42")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "client-42", seen)
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := Chain(boom, RequestID(), Recovery(zap.NewNop()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/colorize-lineart", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.NotEmpty(t, env.RequestID)
}

func TestTokenAuth(t *testing.T) {
	m, err := credential.NewManager(config.AuthConfig{Secret: "middleware-test-secret", Issuer: "artspark"})
	require.NoError(t, err)
	token, _, err := m.Issue("ms-session-key")
	require.NoError(t, err)

	var gotKey string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey, _ = ctxkeys.SessionKey(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := TokenAuth(m, zap.NewNop())(inner)

	tests := []struct {
		name       string
		method     string
		target     string
		bearer     string
		wantStatus int
		wantKey    string
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK, ""},
		{"files are public", http.MethodGet, "/files/uploads/a.png", "", http.StatusOK, ""},
		{"set_key is public", http.MethodPost, "/api/set_key", "", http.StatusOK, ""},
		{"check_key is public", http.MethodGet, "/api/check_key", "", http.StatusOK, ""},
		{"preflight passes", http.MethodOptions, "/api/colorize-lineart", "", http.StatusOK, ""},
		{"missing token", http.MethodPost, "/api/colorize-lineart", "", http.StatusUnauthorized, ""},
		{"bad token", http.MethodPost, "/api/colorize-lineart", "nope", http.StatusUnauthorized, ""},
		{"bearer token", http.MethodPost, "/api/colorize-lineart", token, http.StatusOK, "ms-session-key"},
		{"query token", http.MethodPost, "/api/generate-ideas?token=" + token, "", http.StatusOK, "ms-session-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotKey = ""
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.bearer != "" {
				r.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantKey, gotKey)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, w).Error.Code)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, zap.NewNop())
	handler := Chain(okHandler(), RealIP(), RateLimiter(ctx, 1, 2, collector, zap.NewNop()))

	send := func(ip string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/check_key", nil)
		r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.9"), "buckets are per client")

	series := gatherSeries(t, reg, "test_http_rate_limited_total")
	require.Len(t, series, 1)
	assert.Equal(t, float64(1), series[0].GetCounter().GetValue())
}

func TestCORS(t *testing.T) {
	t.Run("allow listed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/colorize-lineart", nil)
		r.Header.Set("Origin", "https://studio.example")
		w := httptest.NewRecorder()
		CORS([]string{"https://studio.example"})(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://studio.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("wildcard", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/colorize-lineart", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		CORS([]string{"*"})(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/colorize-lineart", nil)
		r.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS([]string{"https://studio.example"})(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("test", reg, zap.NewNop())
	handler := MetricsMiddleware(collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false}`))
	}))

	for _, p := range []string{"/api/colorize-lineart", "/files/uploads/1.png", "/files/uploads/2.png", "/wp-admin"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, p, nil))
	}

	paths := map[string]float64{}
	for _, m := range gatherSeries(t, reg, "test_http_requests_total") {
		for _, l := range m.GetLabel() {
			if l.GetName() == "path" {
				paths[l.GetValue()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"/api/colorize-lineart": 1, "/files/*": 2, "other": 1}, paths)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/gallery/explain":        "/api/gallery/explain",
		"/health":                     "/health",
		"/files/uploads/abc-123.png":  "/files/*",
		"/api/unknown/9f86d081884c7d": "other",
		"/":                           "other",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
