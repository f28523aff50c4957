// Package frame 定义管线中流转的图像与遮罩数据
//
// Frame 为紧凑排列的 3 通道 8bit 图像，通道顺序显式记录；
// Mask 为同尺寸的单通道浮点置信度，取值 [0,1]。
package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Order 通道顺序
type Order int

const (
	BGR Order = iota
	RGB
)

func (o Order) String() string {
	switch o {
	case BGR:
		return "BGR"
	case RGB:
		return "RGB"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

const Channels = 3

type Frame struct {
	Width, Height int
	Order         Order
	Pix           []uint8
}

func New(width, height int, order Order) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Order:  order,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Wrap 包装一段已排好的像素数据，长度不符时返回错误
func Wrap(width, height int, order Order, pix []uint8) (*Frame, error) {
	if len(pix) != width*height*Channels {
		return nil, fmt.Errorf("frame: %d bytes for %dx%dx%d", len(pix), width, height, Channels)
	}
	return &Frame{Width: width, Height: height, Order: order, Pix: pix}, nil
}

func (f *Frame) offset(x, y int) int {
	return (y*f.Width + x) * Channels
}

func (f *Frame) At(x, y, c int) uint8 {
	return f.Pix[f.offset(x, y)+c]
}

func (f *Frame) Set(x, y, c int, v uint8) {
	f.Pix[f.offset(x, y)+c] = v
}

// Fill 把每个像素的每个通道设为 v
func (f *Frame) Fill(v uint8) *Frame {
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

func (f *Frame) Clone() *Frame {
	c := *f
	c.Pix = append([]uint8(nil), f.Pix...)
	return &c
}

// Convert 返回指定通道顺序的帧；顺序相同时直接返回 f
func (f *Frame) Convert(order Order) *Frame {
	if f.Order == order {
		return f
	}
	out := f.Clone()
	out.Order = order
	for i := 0; i < len(out.Pix); i += Channels {
		out.Pix[i], out.Pix[i+2] = out.Pix[i+2], out.Pix[i]
	}
	return out
}

// RGBA 转为标准库图像，用于编码与缩放
func (f *Frame) RGBA() *image.RGBA {
	r, b := 0, 2
	if f.Order == BGR {
		r, b = 2, 0
	}
	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i < len(f.Pix); i, j = i+Channels, j+4 {
		img.Pix[j] = f.Pix[i+r]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+b]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FromImage 把任意图像转为指定通道顺序的 Frame，alpha 被丢弃
func FromImage(img image.Image, order Order) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}

	r, bl := 0, 2
	if order == BGR {
		r, bl = 2, 0
	}
	f := New(b.Dx(), b.Dy(), order)
	// 子图与父图共享 Stride，按行取
	for y := 0; y < f.Height; y++ {
		row := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):][:4*f.Width]
		out := f.Pix[y*f.Width*Channels:][:f.Width*Channels]
		for i, j := 0, 0; i < len(out); i, j = i+Channels, j+4 {
			out[i+r] = row[j]
			out[i+1] = row[j+1]
			out[i+bl] = row[j+2]
		}
	}
	return f
}

// Solid 生成纯色帧
func Solid(width, height int, order Order, c color.Color) *Frame {
	r, g, b, _ := c.RGBA()
	px := [Channels]uint8{uint8(b >> 8), uint8(g >> 8), uint8(r >> 8)}
	if order == RGB {
		px[0], px[2] = px[2], px[0]
	}
	f := New(width, height, order)
	for i := 0; i < len(f.Pix); i += Channels {
		copy(f.Pix[i:i+Channels], px[:])
	}
	return f
}

// Sample 浮点采样值到 8bit 的唯一转换入口：四舍五入（半数向上）并截断到 [0,255]
func Sample(v float64) uint8 {
	v = math.Floor(v + 0.5)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
