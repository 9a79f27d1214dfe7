package storage

import (
	"bytes"
	"context"
	stdimage "image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/types"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newStore(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(config.StorageConfig{
		Dir:            t.TempDir(),
		PublicBaseURL:  "https://art.example/",
		MaxUploadBytes: maxBytes,
	}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestPut(t *testing.T) {
	s := newStore(t, 0)
	data := pngBytes(t, 200, 100)

	url, w, h, err := s.Put(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)
	assert.True(t, strings.HasPrefix(url, "https://art.example/files/uploads/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	name := url[strings.LastIndex(url, "/")+1:]
	stored, err := os.ReadFile(filepath.Join(s.Root(), "uploads", name))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestPut_MIMEWithParams(t *testing.T) {
	s := newStore(t, 0)
	url, _, _, err := s.Put(context.Background(), pngBytes(t, 8, 8), "Image/PNG; charset=binary")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"))
}

func TestPut_Rejects(t *testing.T) {
	s := newStore(t, 64)
	ctx := context.Background()

	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"unsupported mime", pngBytes(t, 4, 4), "image/bmp"},
		{"empty", nil, "image/png"},
		{"not an image", []byte("definitely not a png"), "image/png"},
		{"too large", pngBytes(t, 64, 64), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := s.Put(ctx, tt.data, tt.mime)
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
		})
	}

	entries, err := os.ReadDir(filepath.Join(s.Root(), "uploads"))
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads are never written")
}

func TestPut_WriteFailure(t *testing.T) {
	s := newStore(t, 0)
	require.NoError(t, os.RemoveAll(filepath.Join(s.Root(), "uploads")))

	_, _, _, err := s.Put(context.Background(), pngBytes(t, 4, 4), "image/png")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrStorage))
}

func TestHandler_ServesStoredFile(t *testing.T) {
	s := newStore(t, 0)
	data := pngBytes(t, 16, 16)
	url, _, _, err := s.Put(context.Background(), data, "image/png")
	require.NoError(t, err)

	path := url[strings.Index(url, "/files/"):]
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestSweep_RemovesExpiredUploads(t *testing.T) {
	s, err := NewLocalStore(config.StorageConfig{
		Dir:       t.TempDir(),
		Retention: time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	oldURL, _, _, err := s.Put(context.Background(), pngBytes(t, 4, 4), "image/png")
	require.NoError(t, err)
	freshURL, _, _, err := s.Put(context.Background(), pngBytes(t, 4, 4), "image/png")
	require.NoError(t, err)

	oldPath := filepath.Join(s.Root(), "uploads", filepath.Base(oldURL))
	freshPath := filepath.Join(s.Root(), "uploads", filepath.Base(freshURL))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	n, err := s.Sweep(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
}

func TestSweep_DisabledWithoutRetention(t *testing.T) {
	s := newStore(t, 0)
	url, _, _, err := s.Put(context.Background(), pngBytes(t, 4, 4), "image/png")
	require.NoError(t, err)

	n, err := s.Sweep(time.Now().Add(365 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, filepath.Join(s.Root(), "uploads", filepath.Base(url)))
}

func TestRunSweeper_StopsWithContext(t *testing.T) {
	s, err := NewLocalStore(config.StorageConfig{
		Dir:       t.TempDir(),
		Retention: time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	url, _, _, err := s.Put(context.Background(), pngBytes(t, 4, 4), "image/png")
	require.NoError(t, err)
	path := filepath.Join(s.Root(), "uploads", filepath.Base(url))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
