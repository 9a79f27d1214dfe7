package image

import (
	"fmt"
	"math"
)

const (
	// TargetSide 输出图长边
	TargetSide = 1024
	// Granularity 生图模型要求的尺寸粒度
	Granularity = 64
)

// Size 输出图尺寸
type Size struct {
	Width  int
	Height int
}

// DefaultSize 输入尺寸未知时使用的方图
func DefaultSize() Size {
	return Size{Width: TargetSide, Height: TargetSide}
}

// ModelScope 魔搭格式 "WxH"
func (s Size) ModelScope() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// DashScope 百炼格式 "W*H"
func (s Size) DashScope() string {
	return fmt.Sprintf("%d*%d", s.Width, s.Height)
}

// RoundTo64 取最接近的 64 的倍数，最小为 64
func RoundTo64(x float64) int {
	v := int(math.Round(x/Granularity)) * Granularity
	if v < Granularity {
		return Granularity
	}
	return v
}

// AdaptiveSize 保持宽高比，长边缩放到 1024 后按 64 取整
func AdaptiveSize(w, h int) Size {
	if w <= 0 || h <= 0 {
		return DefaultSize()
	}

	var fw, fh float64
	if w >= h {
		fw = TargetSide
		fh = float64(h) * TargetSide / float64(w)
	} else {
		fh = TargetSide
		fw = float64(w) * TargetSide / float64(h)
	}

	return Size{Width: RoundTo64(fw), Height: RoundTo64(fh)}
}
