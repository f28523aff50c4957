// Package composite 合成实时画面、背景与常驻前景遮罩
package composite

import (
	"fmt"

	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/scene"
)

// Composite 使用场景 s 的背景与前景遮罩合成一帧
func Composite(f *frame.Frame, mask *frame.Mask, s *scene.Scene) *frame.Frame {
	return Blend(f, mask, s.Background, s.Foreground, s.InverseForeground)
}

// Blend 逐像素、逐通道计算
//
//	out = (f·m + bg·(1−m))·inv + bg·fg
//
// m 选择人像或背景，fg 为 1 的位置强制显示背景。
// 输入尺寸或通道顺序不一致属于调用方错误，直接 panic。
func Blend(f *frame.Frame, mask *frame.Mask, bg *frame.Frame, fg, inv *frame.Mask) *frame.Frame {
	mustMatch(f, mask, bg, fg, inv)

	out := frame.New(f.Width, f.Height, f.Order)
	for i, m := range mask.Val {
		keep, over := inv.Val[i], fg.Val[i]
		p := i * frame.Channels
		for c := 0; c < frame.Channels; c++ {
			live, back := float64(f.Pix[p+c]), float64(bg.Pix[p+c])
			out.Pix[p+c] = frame.Sample((live*m+back*(1-m))*keep + back*over)
		}
	}
	return out
}

func mustMatch(f *frame.Frame, mask *frame.Mask, bg *frame.Frame, fg, inv *frame.Mask) {
	w, h := f.Width, f.Height
	switch {
	case len(f.Pix) != w*h*frame.Channels:
		panic(fmt.Sprintf("composite: frame has %d bytes for %dx%d", len(f.Pix), w, h))
	case bg.Width != w || bg.Height != h || len(bg.Pix) != len(f.Pix):
		panic(fmt.Sprintf("composite: background %dx%d, frame %dx%d", bg.Width, bg.Height, w, h))
	case bg.Order != f.Order:
		panic(fmt.Sprintf("composite: background order %s, frame order %s", bg.Order, f.Order))
	}
	for name, m := range map[string]*frame.Mask{"mask": mask, "foreground": fg, "inverse foreground": inv} {
		if m.Width != w || m.Height != h || len(m.Val) != w*h {
			panic(fmt.Sprintf("composite: %s %dx%d, frame %dx%d", name, m.Width, m.Height, w, h))
		}
	}
}
