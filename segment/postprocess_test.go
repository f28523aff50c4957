package segment

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflect101(t *testing.T) {
	t.Parallel()

	tests := []struct{ i, n, want int }{
		{0, 5, 0},
		{4, 5, 4},
		{-1, 5, 1},
		{-2, 5, 2},
		{5, 5, 3},
		{6, 5, 2},
		{-7, 3, 1},
		{3, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflect101(tt.i, tt.n), "reflect101(%d, %d)", tt.i, tt.n)
	}
}

func TestDilate_AnchorAtCentre(t *testing.T) {
	t.Parallel()

	const w, h = 8, 1
	src := make([]float64, w*h)
	src[3] = 255

	// k=3: [x-1, x+1]
	got := Dilate(src, w, h, 3)
	assert.Equal(t, []float64{0, 0, 255, 255, 255, 0, 0, 0}, got)

	// k=4: [x-2, x+1]
	got = Dilate(src, w, h, 4)
	assert.Equal(t, []float64{0, 0, 255, 255, 255, 255, 0, 0}, got)
}

func TestDilate_GrowsBlock(t *testing.T) {
	t.Parallel()

	const w, h = 7, 7
	src := make([]float64, w*h)
	src[3*w+3] = 200

	got := Dilate(src, w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := 0.0
			if x >= 2 && x <= 4 && y >= 2 && y <= 4 {
				want = 200
			}
			assert.Equal(t, want, got[y*w+x], "(%d,%d)", x, y)
		}
	}
}

func TestBoxBlur(t *testing.T) {
	t.Parallel()

	const w, h = 5, 5

	uniform := make([]float64, w*h)
	for i := range uniform {
		uniform[i] = 90
	}
	for _, v := range BoxBlur(uniform, w, h, 4) {
		assert.InDelta(t, 90, v, 1e-9)
	}

	impulse := make([]float64, w*h)
	impulse[2*w+2] = 90
	got := BoxBlur(impulse, w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := 0.0
			if x >= 1 && x <= 3 && y >= 1 && y <= 3 {
				want = 10
			}
			assert.InDelta(t, want, got[y*w+x], 1e-9, "(%d,%d)", x, y)
		}
	}
}

func TestBoxBlur_ReflectBorder(t *testing.T) {
	t.Parallel()

	// 1×4 行，k=3：x=0 的窗口为 {1,0,1}
	src := []float64{30, 0, 0, 0}
	got := BoxBlur(src, 4, 1, 3)
	// 纵向窗口 {0,0,0} 行均为自身（h=1），因此除以 9 后乘 3
	assert.InDelta(t, 30.0*3/9, got[0], 1e-9)
	assert.InDelta(t, 30.0*3/9, got[1], 1e-9)
	assert.InDelta(t, 0, got[2], 1e-9)
}

func TestPostProcess(t *testing.T) {
	t.Parallel()

	g := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	m := PostProcess(g, DefaultDilate, DefaultBlur)
	require.Equal(t, 40, m.Width)
	for _, v := range m.Val {
		assert.InDelta(t, 1.0, v, 1e-9)
	}

	g = image.NewGray(image.Rect(0, 0, 3, 1))
	copy(g.Pix, []uint8{0, 51, 255})
	m = PostProcess(g, 0, 0)
	assert.InDeltaSlice(t, []float64{0, 0.2, 1}, m.Val, 1e-9)
}

func TestPostProcess_SmoothEdge(t *testing.T) {
	t.Parallel()

	// 左半边前景：膨胀后边缘右移，模糊后形成单调递减的过渡
	const w, h = 64, 8
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			g.Pix[y*w+x] = 255
		}
	}

	m := PostProcess(g, 4, 8)
	row := m.Val[4*w : 5*w]
	for x := 1; x < w; x++ {
		assert.LessOrEqual(t, row[x], row[x-1]+1e-12, "x=%d", x)
	}
	assert.InDelta(t, 1.0, row[0], 1e-9)
	assert.InDelta(t, 0.0, row[w-1], 1e-9)
	assert.Greater(t, row[w/2+1], 0.5, "dilation grows the foreground")
}
