package segment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"net/http"
	"time"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"github.com/chaos-io/fakecam/frame"
	nhttp "github.com/chaos-io/fakecam/util/http"
)

const (
	DefaultEndpoint    = "http://127.0.0.1:9000"
	DefaultScaleFactor = 0.5
	DefaultDilate      = 20
	DefaultBlur        = 30
)

type Options struct {
	Endpoint    string
	ScaleFactor float64
	Dilate      int
	Blur        int
	// Timeout 单次请求超时，0 表示使用客户端默认值
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Endpoint:    DefaultEndpoint,
		ScaleFactor: DefaultScaleFactor,
		Dilate:      DefaultDilate,
		Blur:        DefaultBlur,
	}
}

// BodyPix 调用 bodypix 风格的分割服务：
// 请求体为缩小后的 PNG，响应体为同尺寸的单通道字节网格（0-255）。
type BodyPix struct {
	opts Options
	cli  nhttp.IClient
}

func NewBodyPix(opts Options) *BodyPix {
	return NewBodyPixWithClient(opts, nhttp.NewHTTPClient())
}

func NewBodyPixWithClient(opts Options, cli nhttp.IClient) *BodyPix {
	return &BodyPix{opts: opts, cli: cli}
}

func (b *BodyPix) Mask(ctx context.Context, f *frame.Frame) (*frame.Mask, error) {
	w, h := scaled(f.Width, b.opts.ScaleFactor), scaled(f.Height, b.opts.ScaleFactor)

	body, err := encodeSmall(f, w, h)
	if err != nil {
		return nil, err
	}

	var raw []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: b.opts.Endpoint,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": "application/octet-stream"},
		Body:       body,
		Response:   &raw,
		Timeout:    b.opts.Timeout,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if len(raw) != w*h {
		return nil, fmt.Errorf("%w: got %d bytes, want %dx%d", ErrMalformedMask, len(raw), w, h)
	}

	small := &image.Gray{Pix: raw, Stride: w, Rect: image.Rect(0, 0, w, h)}
	full := image.NewGray(f.Bounds())
	// 最近邻放大，保留硬边缘，平滑交给后处理
	draw.NearestNeighbor.Scale(full, full.Bounds(), small, small.Bounds(), draw.Src, nil)

	return PostProcess(full, b.opts.Dilate, b.opts.Blur), nil
}

// encodeSmall 缩小到 w×h 并编码为 PNG
func encodeSmall(f *frame.Frame, w, h int) ([]byte, error) {
	small := resize.Resize(uint(w), uint(h), f.RGBA(), resize.Bilinear)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, small); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func scaled(n int, sf float64) int {
	return max(1, int(math.Round(float64(n)*sf)))
}
