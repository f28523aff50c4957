package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want uint8
	}{
		{0, 0},
		{-3.2, 0},
		{0.49, 0},
		{0.5, 1},
		{149.5, 150},
		{150, 150},
		{254.4, 254},
		{254.5, 255},
		{300, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sample(tt.in), "Sample(%v)", tt.in)
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	_, err := Wrap(2, 2, BGR, make([]uint8, 11))
	assert.Error(t, err)

	f, err := Wrap(2, 2, BGR, make([]uint8, 12))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)
}

func TestFrame_Convert(t *testing.T) {
	t.Parallel()

	f := New(1, 1, BGR)
	f.Set(0, 0, 0, 10) // B
	f.Set(0, 0, 1, 20) // G
	f.Set(0, 0, 2, 30) // R

	same := f.Convert(BGR)
	assert.Same(t, f, same)

	rgb := f.Convert(RGB)
	assert.Equal(t, RGB, rgb.Order)
	assert.Equal(t, []uint8{30, 20, 10}, rgb.Pix)
	assert.Equal(t, []uint8{10, 20, 30}, f.Pix, "source must not change")
}

func TestFrame_RGBAndImage(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.Set(5, 5, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	src.Set(6, 5, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	f := FromImage(src, BGR)
	require.Equal(t, 2, f.Width)
	require.Equal(t, 1, f.Height)
	assert.Equal(t, []uint8{50, 100, 200, 3, 2, 1}, f.Pix)

	rgba := f.RGBA()
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, rgba.RGBAAt(1, 0))

	// 子图保留父图的 Stride
	parent := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			parent.SetRGBA(x, y, color.RGBA{R: uint8(y*4 + x), A: 255})
		}
	}
	tests := []struct {
		name  string
		rect  image.Rectangle
		wantR []uint8
	}{
		{"原点子图", image.Rect(0, 0, 2, 2), []uint8{0, 1, 4, 5}},
		{"偏移子图", image.Rect(1, 2, 3, 4), []uint8{9, 10, 13, 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := FromImage(parent.SubImage(tt.rect), RGB)
			require.Equal(t, 2, sub.Width)
			require.Equal(t, 2, sub.Height)
			got := make([]uint8, 0, 4)
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					got = append(got, sub.At(x, y, 0))
				}
			}
			assert.Equal(t, tt.wantR, got)
		})
	}
}

func TestSolid(t *testing.T) {
	t.Parallel()

	bgr := Solid(2, 1, BGR, color.RGBA{R: 0, G: 177, B: 64, A: 255})
	assert.Equal(t, []uint8{64, 177, 0, 64, 177, 0}, bgr.Pix)

	rgb := Solid(1, 1, RGB, color.RGBA{R: 0, G: 177, B: 64, A: 255})
	assert.Equal(t, []uint8{0, 177, 64}, rgb.Pix)
}

func TestMask_InverseAndGray(t *testing.T) {
	t.Parallel()

	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.SetGray(0, 0, color.Gray{Y: 255})
	g.SetGray(1, 0, color.Gray{Y: 51})

	m := MaskFromGray(g)
	assert.InDelta(t, 1.0, m.At(0, 0), 1e-9)
	assert.InDelta(t, 0.2, m.At(1, 0), 1e-9)

	inv := m.Inverse()
	assert.InDelta(t, 0.0, inv.At(0, 0), 1e-9)
	assert.InDelta(t, 0.8, inv.At(1, 0), 1e-9)
}

func TestMaskFromGray_SubImage(t *testing.T) {
	t.Parallel()

	g := image.NewGray(image.Rect(0, 0, 4, 4))
	g.SetGray(2, 2, color.Gray{Y: 255})
	sub := g.SubImage(image.Rect(2, 2, 4, 4)).(*image.Gray)

	m := MaskFromGray(sub)
	require.Equal(t, 2, m.Width)
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 0.0, m.At(1, 1))
}
