// Package camera 通过 OpenCV 读取真实摄像头
package camera

import (
	"context"
	"image"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/chaos-io/fakecam/frame"
)

const DefaultDevice = "/dev/video0"

type Options struct {
	// Device 设备路径（/dev/video0）或索引（"0"）
	Device        string
	Width, Height int
	FPS           float64
}

// Camera 按配置分辨率输出 BGR 帧；设备不支持该分辨率时在读取后缩放
type Camera struct {
	name    string
	width   int
	height  int
	device  *gocv.VideoCapture
	mat     gocv.Mat
	resized gocv.Mat
}

func Open(opts Options) (*Camera, error) {
	if opts.Device == "" {
		opts.Device = DefaultDevice
	}
	var source interface{} = opts.Device
	if idx, err := strconv.Atoi(opts.Device); err == nil {
		source = idx
	}

	device, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, errors.Wrap(err, opts.Device)
	}
	if !device.IsOpened() {
		_ = device.Close()
		return nil, errors.Errorf("%s: device is not available", opts.Device)
	}

	device.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
	device.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	device.Set(gocv.VideoCaptureFPS, opts.FPS)

	slog.Info("camera opened",
		"device", opts.Device,
		"width", device.Get(gocv.VideoCaptureFrameWidth),
		"height", device.Get(gocv.VideoCaptureFrameHeight),
		"fps", device.Get(gocv.VideoCaptureFPS),
	)

	return &Camera{
		name:    opts.Device,
		width:   opts.Width,
		height:  opts.Height,
		device:  device,
		mat:     gocv.NewMat(),
		resized: gocv.NewMat(),
	}, nil
}

// Read 阻塞读取一帧。VideoCapture.Read 不支持取消，ctx 只在读取前检查。
func (c *Camera) Read(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ok := c.device.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, errors.Errorf("%s: failed to capture", c.name)
	}
	if c.mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, errors.Errorf("%s: unexpected mat type %v", c.name, c.mat.Type())
	}

	m := c.mat
	if m.Cols() != c.width || m.Rows() != c.height {
		gocv.Resize(c.mat, &c.resized, image.Pt(c.width, c.height), 0, 0, gocv.InterpolationLinear)
		m = c.resized
	}

	f, err := frame.Wrap(c.width, c.height, frame.BGR, m.ToBytes())
	if err != nil {
		return nil, errors.Wrap(err, c.name)
	}
	return f, nil
}

func (c *Camera) Close() error {
	_ = c.mat.Close()
	_ = c.resized.Close()
	return errors.Wrap(c.device.Close(), c.name)
}
