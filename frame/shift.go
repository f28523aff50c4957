package frame

// span 计算平移 d 后，目标区间 [dst, dst+n) 与源起点 src
func span(d, size int) (dst, src, n int) {
	if d >= 0 {
		return d, 0, size - d
	}
	return 0, -d, size + d
}

// Shift 将图像内容平移 (dx, dy) 像素，空出的行列填 0。
// dy > 0 向下移动（顶部补零），dx > 0 向右移动（左侧补零）；
// 平移量不小于图像尺寸时得到全零图像。
func Shift(f *Frame, dx, dy int) *Frame {
	out := New(f.Width, f.Height, f.Order)
	xDst, xSrc, n := span(dx, f.Width)
	yDst, ySrc, rows := span(dy, f.Height)
	if n <= 0 || rows <= 0 {
		return out
	}

	for r := 0; r < rows; r++ {
		d := out.offset(xDst, yDst+r)
		s := f.offset(xSrc, ySrc+r)
		copy(out.Pix[d:d+n*Channels], f.Pix[s:s+n*Channels])
	}
	return out
}

// ShiftMask 与 Shift 相同，作用于遮罩
func ShiftMask(m *Mask, dx, dy int) *Mask {
	out := NewMask(m.Width, m.Height)
	xDst, xSrc, n := span(dx, m.Width)
	yDst, ySrc, rows := span(dy, m.Height)
	if n <= 0 || rows <= 0 {
		return out
	}

	for r := 0; r < rows; r++ {
		d := (yDst+r)*m.Width + xDst
		s := (ySrc+r)*m.Width + xSrc
		copy(out.Val[d:d+n], m.Val[s:s+n])
	}
	return out
}
