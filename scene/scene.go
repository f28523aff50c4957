// Package scene 持有背景图、前景遮罩及其反相，并支持整体热重载
package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/image/draw"

	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/util"
)

var ErrNoBackground = errors.New("scene: background image unavailable")

// MissingPolicy 背景图缺失时的处理策略
type MissingPolicy string

const (
	// MissingFail 加载失败，启动阶段即退出
	MissingFail MissingPolicy = "fail"
	// MissingSolid 使用纯色背景替代
	MissingSolid MissingPolicy = "solid"
)

type Options struct {
	Width, Height int
	Order         frame.Order

	// Background 必需；本地路径或 http(s) 地址
	Background string
	// Foreground 可选；灰度图，白色区域始终显示背景
	Foreground string

	OnMissing MissingPolicy
	Color     color.RGBA
}

// Scene 一次加载得到的完整三元组，创建后只读
type Scene struct {
	ID       ksuid.KSUID
	LoadedAt time.Time

	Background        *frame.Frame
	Foreground        *frame.Mask
	InverseForeground *frame.Mask

	BackgroundFallback bool
	ForegroundFallback bool
}

// Load 读取并缩放背景与前景，构造新的 Scene
func Load(ctx context.Context, opts Options) (*Scene, error) {
	defer util.Trace("load scene")()

	s := &Scene{
		ID:       ksuid.New(),
		LoadedAt: time.Now(),
	}

	bg, err := loadBackground(ctx, opts)
	switch {
	case err == nil:
		s.Background = bg
		slog.Info("reloaded the background image", "source", opts.Background, "scene", s.ID)
	case opts.OnMissing == MissingSolid:
		s.Background = frame.Solid(opts.Width, opts.Height, opts.Order, opts.Color)
		s.BackgroundFallback = true
		slog.Warn("using solid background", "source", opts.Background, "error", err, "scene", s.ID)
	default:
		return nil, fmt.Errorf("%w: %s: %w", ErrNoBackground, opts.Background, err)
	}

	fg, err := loadForeground(ctx, opts)
	if err != nil {
		s.Foreground = frame.NewMask(opts.Width, opts.Height)
		s.ForegroundFallback = true
		slog.Info("using empty foreground mask", "source", opts.Foreground, "reason", err, "scene", s.ID)
	} else {
		s.Foreground = fg
		slog.Info("reloaded the foreground mask", "source", opts.Foreground, "scene", s.ID)
	}
	s.InverseForeground = s.Foreground.Inverse()

	return s, nil
}

func loadBackground(ctx context.Context, opts Options) (*frame.Frame, error) {
	if opts.Background == "" {
		return nil, errors.New("no background configured")
	}
	img, err := util.LoadImage(ctx, opts.Background)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return frame.FromImage(dst, opts.Order), nil
}

func loadForeground(ctx context.Context, opts Options) (*frame.Mask, error) {
	if opts.Foreground == "" {
		return nil, errors.New("no foreground configured")
	}
	img, err := util.LoadImage(ctx, opts.Foreground)
	if err != nil {
		return nil, err
	}

	dst := image.NewGray(image.Rect(0, 0, opts.Width, opts.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return frame.MaskFromGray(dst), nil
}
