package frame

import (
	"image"
)

// Mask 前景置信度，行优先排列
type Mask struct {
	Width, Height int
	Val           []float64
}

func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Val:    make([]float64, width*height),
	}
}

func (m *Mask) At(x, y int) float64 {
	return m.Val[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v float64) {
	m.Val[y*m.Width+x] = v
}

func (m *Mask) Fill(v float64) *Mask {
	for i := range m.Val {
		m.Val[i] = v
	}
	return m
}

func (m *Mask) Clone() *Mask {
	c := *m
	c.Val = append([]float64(nil), m.Val...)
	return &c
}

// Inverse 返回 1 - m
func (m *Mask) Inverse() *Mask {
	inv := NewMask(m.Width, m.Height)
	for i, v := range m.Val {
		inv.Val[i] = 1 - v
	}
	return inv
}

// MaskFromGray 灰度图按 /255 归一化为遮罩
func MaskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):][:m.Width]
		for x, v := range row {
			m.Val[y*m.Width+x] = float64(v) / 255.0
		}
	}
	return m
}
