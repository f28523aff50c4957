// Package capture 提供无需摄像头的帧来源
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfnt/resize"

	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/util"
)

// Loop 以固定帧率重复输出同一张图片，用于没有摄像头时调试整条管线
type Loop struct {
	frame *frame.Frame
	tick  *time.Ticker
}

func NewLoop(ctx context.Context, location string, width, height int, fps float64) (*Loop, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("loop source: fps must be > 0, got %v", fps)
	}

	img, err := util.LoadImage(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load loop image %s: %w", location, err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	}

	slog.Info("loop source starting", "source", location, "width", width, "height", height, "fps", fps)

	return &Loop{
		frame: frame.FromImage(img, frame.BGR),
		tick:  time.NewTicker(time.Duration(float64(time.Second) / fps)),
	}, nil
}

// Read 等到下一个节拍后返回图片副本
func (l *Loop) Read(ctx context.Context) (*frame.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.tick.C:
		return l.frame.Clone(), nil
	}
}

func (l *Loop) Close() error {
	l.tick.Stop()
	return nil
}
