// Package vcam 虚拟摄像头输出：v4l2loopback 设备、MJPEG 流以及多路复用
package vcam

import (
	"errors"

	"github.com/chaos-io/fakecam/frame"
)

const DefaultDevice = "/dev/video2"

// Sink 接收 RGB 顺序的整帧
type Sink interface {
	Write(f *frame.Frame) error
	Close() error
}

// Tee 把每一帧依次写入所有 sink
type Tee []Sink

func (t Tee) Write(f *frame.Frame) error {
	var errs []error
	for _, s := range t {
		if err := s.Write(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
