package segment

import (
	"image"

	"github.com/chaos-io/fakecam/frame"
)

// PostProcess 对放大后的原始遮罩做膨胀与均值模糊，并归一化到 [0,1]
//
//	dilate  矩形结构元素边长，锚点居中，图像外的像素不参与
//	blur    均值滤波窗口边长，锚点居中，边界按 reflect-101 取值
func PostProcess(g *image.Gray, dilate, blur int) *frame.Mask {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()

	buf := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):][:w]
		for x, v := range row {
			buf[y*w+x] = float64(v)
		}
	}

	if dilate > 1 {
		buf = Dilate(buf, w, h, dilate)
	}
	if blur > 1 {
		buf = BoxBlur(buf, w, h, blur)
	}

	m := frame.NewMask(w, h)
	for i, v := range buf {
		m.Val[i] = clamp01(v / 255.0)
	}
	return m
}

// Dilate 取 k×k 邻域最大值，分行列两次完成
func Dilate(src []float64, w, h, k int) []float64 {
	a := k / 2
	tmp := make([]float64, len(src))
	dst := make([]float64, len(src))

	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			lo, hi := max(0, x-a), min(w-1, x-a+k-1)
			v := row[lo]
			for i := lo + 1; i <= hi; i++ {
				v = max(v, row[i])
			}
			tmp[y*w+x] = v
		}
	}

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			lo, hi := max(0, y-a), min(h-1, y-a+k-1)
			v := tmp[lo*w+x]
			for i := lo + 1; i <= hi; i++ {
				v = max(v, tmp[i*w+x])
			}
			dst[y*w+x] = v
		}
	}
	return dst
}

// BoxBlur 归一化 k×k 均值滤波，行列各一次滑动求和
func BoxBlur(src []float64, w, h, k int) []float64 {
	a := k / 2
	tmp := make([]float64, len(src))
	dst := make([]float64, len(src))

	for y := 0; y < h; y++ {
		at := func(i int) float64 { return src[y*w+reflect101(i, w)] }
		var sum float64
		for i := -a; i < k-a; i++ {
			sum += at(i)
		}
		for x := 0; x < w; x++ {
			tmp[y*w+x] = sum
			sum += at(x-a+k) - at(x-a)
		}
	}

	area := float64(k * k)
	for x := 0; x < w; x++ {
		at := func(i int) float64 { return tmp[reflect101(i, h)*w+x] }
		var sum float64
		for i := -a; i < k-a; i++ {
			sum += at(i)
		}
		for y := 0; y < h; y++ {
			dst[y*w+x] = sum / area
			sum += at(y-a+k) - at(y-a)
		}
	}
	return dst
}

// reflect101 边界镜像（不重复边缘像素）：-1 → 1, n → n-2
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
