// Package pipeline 驱动 采集 → 分割 → 合成 → 输出 的主循环
//
// 单个 goroutine 执行 Run；重载请求可以来自任意 goroutine，
// 只在两帧之间生效，合成过程中看到的场景要么全旧要么全新。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chaos-io/fakecam/composite"
	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/scene"
	"github.com/chaos-io/fakecam/segment"
)

// Source 每次调用返回一帧固定尺寸的原始图像
type Source interface {
	Read(ctx context.Context) (*frame.Frame, error)
	Close() error
}

// Sink 接收 RGB 顺序的完整帧
type Sink interface {
	Write(f *frame.Frame) error
	Close() error
}

type State int32

const (
	Reloading State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Reloading:
		return "reloading"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type Options struct {
	// MaskShift 合成前对遮罩做的平移校正，零值表示不校正
	MaskShift image.Point
}

type Driver struct {
	src   Source
	seg   segment.Segmenter
	store *scene.Store
	sink  Sink
	opts  Options

	reloadq chan struct{}
	state   atomic.Int32
	last    atomic.Pointer[frame.Frame]
	stats   counters
}

func New(src Source, seg segment.Segmenter, store *scene.Store, sink Sink, opts Options) *Driver {
	d := &Driver{
		src:     src,
		seg:     seg,
		store:   store,
		sink:    sink,
		opts:    opts,
		reloadq: make(chan struct{}, 1),
	}
	d.state.Store(int32(Reloading))
	return d
}

// Reload 请求在下一帧开始前重载场景；不阻塞，多次请求合并为一次
func (d *Driver) Reload() {
	select {
	case d.reloadq <- struct{}{}:
	default:
	}
}

func (d *Driver) State() State {
	return State(d.state.Load())
}

// Last 最近一次输出的 RGB 帧
func (d *Driver) Last() *frame.Frame {
	return d.last.Load()
}

// Scene 当前场景
func (d *Driver) Scene() *scene.Scene {
	return d.store.Current()
}

// Run 持续处理帧直到 ctx 结束或采集/输出失败。
// 首次场景加载失败直接返回错误；之后的重载失败保留旧场景继续运行。
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-d.reloadq:
			d.state.Store(int32(Reloading))
		default:
		}

		if d.State() == Reloading {
			if err := d.reload(ctx); err != nil && d.store.Current() == nil {
				return fmt.Errorf("load initial scene: %w", err)
			}
			d.state.Store(int32(Running))
		}

		if err := d.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

func (d *Driver) reload(ctx context.Context) error {
	s, err := d.store.Reload(ctx)
	if err != nil {
		d.stats.reloadFailures.Add(1)
		slog.Error("reload scene failed, keeping the previous scene", "error", err)
		return err
	}
	d.stats.reloads.Add(1)
	slog.Info("scene reloaded",
		"scene", s.ID,
		"background_fallback", s.BackgroundFallback,
		"foreground_fallback", s.ForegroundFallback,
	)
	return nil
}

func (d *Driver) cycle(ctx context.Context) error {
	start := time.Now()

	f, err := d.src.Read(ctx)
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	f = f.Convert(d.store.Options().Order)

	mask, err := d.seg.Mask(ctx, f)
	switch {
	case errors.Is(err, segment.ErrAttemptsExhausted):
		// 分割服务不可用时只输出背景，保证不丢帧也不暴露画面
		d.stats.maskFallbacks.Add(1)
		slog.Warn("mask unavailable, emitting background only", "error", err)
		mask = frame.NewMask(f.Width, f.Height)
	case err != nil:
		return fmt.Errorf("get mask: %w", err)
	}

	if d.opts.MaskShift != (image.Point{}) {
		mask = frame.ShiftMask(mask, d.opts.MaskShift.X, d.opts.MaskShift.Y)
	}

	out := composite.Composite(f, mask, d.store.Current()).Convert(frame.RGB)
	if err := d.sink.Write(out); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	d.last.Store(out)
	d.stats.observe(time.Since(start))
	return nil
}
