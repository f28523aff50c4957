//go:build !linux

package vcam

import (
	"errors"

	"github.com/chaos-io/fakecam/frame"
)

type V4L2 struct{}

func OpenV4L2(path string, width, height int) (*V4L2, error) {
	return nil, errors.New("v4l2loopback output is only available on linux")
}

func (v *V4L2) Write(f *frame.Frame) error {
	return nil
}

func (v *V4L2) Close() error {
	return nil
}
