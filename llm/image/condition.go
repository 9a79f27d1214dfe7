package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	stdimage "image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/BaSui01/artspark/types"
)

// 百炼图像编辑接受的边长范围
const (
	DashScopeMinSide = 512
	DashScopeMaxSide = 4096
)

// MaxSourcePixels 解码前的像素上限，约 160MB RGBA
const MaxSourcePixels = 40_000_000

// Source 解码后的输入图片
type Source struct {
	Data   []byte
	Format string // png, jpeg, gif, webp
	Width  int
	Height int
}

// MIME 返回 MIME 类型
func (s *Source) MIME() string {
	return "image/" + s.Format
}

// DataURL 重新编码为 data URL
func (s *Source) DataURL() string {
	return "data:" + s.MIME() + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

// DecodeDataURL 解析前端传来的 base64 图片（带或不带 data: 前缀）
func DecodeDataURL(field, raw string) (*Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, types.NewValidationError(fmt.Sprintf("%s is required", field))
	}
	if strings.HasPrefix(raw, "data:") {
		idx := strings.Index(raw, ",")
		if idx < 0 {
			return nil, types.NewValidationError(fmt.Sprintf("%s is not a valid data url", field))
		}
		raw = raw[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, types.NewValidationError(fmt.Sprintf("%s is not valid base64", field)).WithCause(err)
	}
	return DecodeBytes(field, data)
}

// DecodeBytes 读取图片格式与尺寸
func DecodeBytes(field string, data []byte) (*Source, error) {
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, types.NewValidationError(fmt.Sprintf("%s is not a supported image", field)).WithCause(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, types.NewValidationError(fmt.Sprintf("%s has no pixels", field))
	}
	if cfg.Width*cfg.Height > MaxSourcePixels {
		return nil, types.NewValidationError(fmt.Sprintf("%s is too large: %dx%d", field, cfg.Width, cfg.Height))
	}
	return &Source{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// FitEnvelope 保持宽高比把尺寸放进 [minSide, maxSide]
// 先按需缩小，再按需放大，每一步整数截断。
// 长短边之比超过 maxSide/minSide 时无解，返回 false。
func FitEnvelope(w, h, minSide, maxSide int) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return w, h, false
	}
	long, short := max(w, h), min(w, h)
	if long*minSide > short*maxSide {
		return w, h, false
	}

	if w > maxSide || h > maxSide {
		if w >= h {
			w, h = maxSide, max(h*maxSide/w, 1)
		} else {
			w, h = max(w*maxSide/h, 1), maxSide
		}
	}

	if w < minSide || h < minSide {
		if w <= h {
			w, h = minSide, min(h*minSide/w, maxSide)
		} else {
			w, h = min(w*minSide/h, maxSide), minSide
		}
	}

	return w, h, true
}

// FitForDashScope 需要时缩放到百炼接受的范围并按原格式重新编码
// webp 没有编码器，缩放后改为 png。
func (s *Source) FitForDashScope() (*Source, error) {
	w, h, ok := FitEnvelope(s.Width, s.Height, DashScopeMinSide, DashScopeMaxSide)
	if !ok {
		return nil, types.NewValidationError(fmt.Sprintf(
			"image aspect ratio %dx%d is too extreme, the long side may be at most %d times the short side",
			s.Width, s.Height, DashScopeMaxSide/DashScopeMinSide))
	}
	if w == s.Width && h == s.Height {
		return s, nil
	}
	return s.Resize(w, h)
}

// Resize 使用 Catmull-Rom 插值缩放
func (s *Source) Resize(w, h int) (*Source, error) {
	if w <= 0 || h <= 0 || w*h > MaxSourcePixels {
		return nil, types.NewValidationError(fmt.Sprintf("invalid resize target %dx%d", w, h))
	}
	img, _, err := stdimage.Decode(bytes.NewReader(s.Data))
	if err != nil {
		return nil, types.NewValidationError("image could not be decoded").WithCause(err)
	}

	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	format := s.Format
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 95})
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		format = "png"
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to encode resized image").WithCause(err)
	}

	return &Source{Data: buf.Bytes(), Format: format, Width: w, Height: h}, nil
}
