// Package segment 从远程人像分割服务获取逐像素前景遮罩
package segment

import (
	"context"
	"errors"

	"github.com/chaos-io/fakecam/frame"
)

var (
	ErrMalformedMask     = errors.New("segment: malformed mask response")
	ErrAttemptsExhausted = errors.New("segment: mask attempts exhausted")
)

// Segmenter 为一帧图像返回同尺寸、取值 [0,1] 的前景遮罩
type Segmenter interface {
	Mask(ctx context.Context, f *frame.Frame) (*frame.Mask, error)
}

type SegmenterFunc func(ctx context.Context, f *frame.Frame) (*frame.Mask, error)

func (fn SegmenterFunc) Mask(ctx context.Context, f *frame.Frame) (*frame.Mask, error) {
	return fn(ctx, f)
}
