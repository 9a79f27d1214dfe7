package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/types"
)

const uploadsDir = "uploads"

// 允许的 MIME 类型 → 文件扩展名
var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Store 图片存储接口，编排层只依赖它
type Store interface {
	Put(ctx context.Context, data []byte, mime string) (url string, width, height int, err error)
}

// LocalStore 本地磁盘存储
type LocalStore struct {
	root      string
	baseURL   string
	maxBytes  int64
	retention time.Duration
	logger    *zap.Logger
}

// NewLocalStore 创建本地存储并确保目录存在
func NewLocalStore(cfg config.StorageConfig, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, uploadsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{
		root:      cfg.Dir,
		baseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:  cfg.MaxUploadBytes,
		retention: cfg.Retention,
		logger:    logger.With(zap.String("component", "storage")),
	}, nil
}

// Put 写入一张图片，返回公网 URL 与宽高
func (s *LocalStore) Put(ctx context.Context, data []byte, mime string) (string, int, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, 0, err
	}

	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	ext, ok := extensions[mime]
	if !ok {
		return "", 0, 0, types.NewValidationError(fmt.Sprintf("unsupported image type %q", mime))
	}
	if len(data) == 0 {
		return "", 0, 0, types.NewValidationError("image is empty")
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", 0, 0, types.NewValidationError(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
	}

	src, err := image.DecodeBytes("image", data)
	if err != nil {
		return "", 0, 0, err
	}

	name := uuid.NewString() + "." + ext
	path := filepath.Join(s.root, uploadsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("failed to write upload", zap.String("path", path), zap.Error(err))
		return "", 0, 0, types.NewError(types.ErrStorage, "failed to store image").
			WithCause(err).
			WithHTTPStatus(http.StatusInternalServerError)
	}

	url := s.baseURL + "/files/" + uploadsDir + "/" + name
	s.logger.Debug("image stored",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Int("width", src.Width),
		zap.Int("height", src.Height))

	return url, src.Width, src.Height, nil
}

// Handler 在 /files/ 下提供已存储的文件
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix("/files/", http.FileServer(http.Dir(s.root)))
}

// Root 返回存储根目录
func (s *LocalStore) Root() string { return s.root }

// Sweep 删除 uploads 下修改时间早于 now-retention 的文件，返回删除个数
// 上传只在上游拉取期间需要，保留期过后即可回收。
func (s *LocalStore) Sweep(now time.Time) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	dir := filepath.Join(s.root, uploadsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read uploads dir: %w", err)
	}

	cutoff := now.Add(-s.retention)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove expired upload", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// RunSweeper 按 interval 周期清理过期上传，直到 ctx 结束
func (s *LocalStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Sweep(now)
			if err != nil {
				s.logger.Warn("upload sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("expired uploads removed", zap.Int("count", n), zap.Duration("retention", s.retention))
			}
		}
	}
}
