package composite

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/scene"
)

func filled(w, h int, v uint8) *frame.Frame {
	return frame.New(w, h, frame.BGR).Fill(v)
}

func textured(w, h int) *frame.Frame {
	f := frame.New(w, h, frame.BGR)
	for i := range f.Pix {
		f.Pix[i] = uint8((i * 37) % 256)
	}
	return f
}

func newScene(bg *frame.Frame, fg *frame.Mask) *scene.Scene {
	return &scene.Scene{
		Background:        bg,
		Foreground:        fg,
		InverseForeground: fg.Inverse(),
	}
}

func TestComposite_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		foreground float64
		want       uint8
	}{
		{"half mask, no overlay", 0, 150},
		{"half mask, full overlay", 1, 200},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := filled(4, 4, 100)
			s := newScene(filled(4, 4, 200), frame.NewMask(4, 4).Fill(tt.foreground))
			mask := frame.NewMask(4, 4).Fill(0.5)

			got := Composite(f, mask, s)
			for i, v := range got.Pix {
				require.Equal(t, tt.want, v, "sample %d", i)
			}
		})
	}
}

func TestComposite_Identity(t *testing.T) {
	t.Parallel()

	f := textured(6, 5)
	s := newScene(filled(6, 5, 7), frame.NewMask(6, 5))

	got := Composite(f, frame.NewMask(6, 5).Fill(1), s)
	assert.Equal(t, f.Pix, got.Pix)
	assert.Equal(t, f.Order, got.Order)
}

func TestComposite_BackgroundReplacement(t *testing.T) {
	t.Parallel()

	bg := textured(6, 5)
	s := newScene(bg, frame.NewMask(6, 5))

	got := Composite(filled(6, 5, 33), frame.NewMask(6, 5), s)
	assert.Equal(t, bg.Pix, got.Pix)
}

func TestComposite_OverlayDominance(t *testing.T) {
	t.Parallel()

	const w, h = 5, 4
	bg := textured(w, h)
	f := filled(w, h, 250)
	fg := frame.NewMask(w, h)
	mask := frame.NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.Set(x, y, float64(x+y)/float64(w+h))
			if x%2 == 0 {
				fg.Set(x, y, 1)
			}
		}
	}

	got := Composite(f, mask, newScene(bg, fg))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x += 2 {
			for c := 0; c < frame.Channels; c++ {
				assert.Equal(t, bg.At(x, y, c), got.At(x, y, c), "pixel (%d,%d,%d)", x, y, c)
			}
		}
	}
}

func TestComposite_FallbackOverlayIsNeutral(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bgPath := filepath.Join(dir, "background.png")
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	out, err := os.Create(bgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(out, img))
	require.NoError(t, out.Close())

	s, err := scene.Load(context.Background(), scene.Options{
		Width: 3, Height: 3, Order: frame.BGR,
		Background: bgPath,
		Foreground: filepath.Join(dir, "missing.jpg"),
		OnMissing:  scene.MissingFail,
		Color:      color.RGBA{A: 255},
	})
	require.NoError(t, err)
	require.True(t, s.ForegroundFallback)

	f := textured(3, 3)
	mask := frame.NewMask(3, 3)
	for i := range mask.Val {
		mask.Val[i] = float64(i) / 8
	}

	got := Composite(f, mask, s)
	for i := range mask.Val {
		for c := 0; c < frame.Channels; c++ {
			p := i*frame.Channels + c
			m := mask.Val[i]
			want := frame.Sample(float64(f.Pix[p])*m + float64(s.Background.Pix[p])*(1-m))
			assert.Equal(t, want, got.Pix[p], "sample %d", p)
		}
	}
}

func TestBlend_Rounding(t *testing.T) {
	t.Parallel()

	// 101·0.5 + 200·0.5 = 150.5 → 151
	got := Blend(filled(1, 1, 101), frame.NewMask(1, 1).Fill(0.5), filled(1, 1, 200),
		frame.NewMask(1, 1), frame.NewMask(1, 1).Fill(1))
	assert.Equal(t, []uint8{151, 151, 151}, got.Pix)
}

func TestBlend_MismatchPanics(t *testing.T) {
	t.Parallel()

	s := newScene(filled(4, 4, 0), frame.NewMask(4, 4))

	assert.Panics(t, func() {
		Composite(filled(4, 4, 0), frame.NewMask(3, 4), s)
	})
	assert.Panics(t, func() {
		Composite(filled(5, 4, 0), frame.NewMask(5, 4), s)
	})
	assert.Panics(t, func() {
		Composite(filled(4, 4, 0).Convert(frame.RGB), frame.NewMask(4, 4), s)
	})
}
