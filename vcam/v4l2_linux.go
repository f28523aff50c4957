//go:build linux

package vcam

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/chaos-io/fakecam/frame"
)

const (
	v4l2BufTypeVideoOutput = 2
	v4l2FieldNone          = 1
	v4l2ColorspaceSRGB     = 8
)

// RGB24 fourcc 'RGB3'
var v4l2PixFmtRGB24 = fourcc('R', 'G', 'B', '3')

// v4l2PixFormat struct v4l2_pix_format
type v4l2PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YcbcrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

// v4l2Format struct v4l2_format；联合体含指针成员，按 uint64 声明以得到与内核一致的对齐
type v4l2Format struct {
	Type uint32
	Fmt  [25]uint64
}

var vidiocSFmt = iowr('V', 5, unsafe.Sizeof(v4l2Format{}))

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

func iowr(t byte, nr, size uintptr) uintptr {
	const read, write = 2, 1
	return (read|write)<<30 | size<<16 | uintptr(t)<<8 | nr
}

// V4L2 向 v4l2loopback 输出设备写入 RGB24 帧
type V4L2 struct {
	file          *os.File
	width, height int
}

func OpenV4L2(path string, width, height int) (*V4L2, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var format v4l2Format
	format.Type = v4l2BufTypeVideoOutput
	pix := (*v4l2PixFormat)(unsafe.Pointer(&format.Fmt[0]))
	*pix = v4l2PixFormat{
		Width:        uint32(width),
		Height:       uint32(height),
		PixelFormat:  v4l2PixFmtRGB24,
		Field:        v4l2FieldNone,
		BytesPerLine: uint32(width * frame.Channels),
		SizeImage:    uint32(width * height * frame.Channels),
		Colorspace:   v4l2ColorspaceSRGB,
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), vidiocSFmt, uintptr(unsafe.Pointer(&format)))
	if errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("VIDIOC_S_FMT on %s: %w", path, errno)
	}

	slog.Info("virtual camera opened", "device", path, "width", width, "height", height, "format", "RGB24")
	return &V4L2{file: f, width: width, height: height}, nil
}

func (v *V4L2) Write(f *frame.Frame) error {
	if f.Width != v.width || f.Height != v.height {
		return fmt.Errorf("v4l2: frame %dx%d, device %dx%d", f.Width, f.Height, v.width, v.height)
	}
	_, err := v.file.Write(f.Convert(frame.RGB).Pix)
	return err
}

func (v *V4L2) Close() error {
	return v.file.Close()
}
