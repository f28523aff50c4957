// fakebodypix 本地开发用的分割服务：按 bodypix 协议返回一个居中的椭圆遮罩
package main

import (
	"bytes"
	"flag"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

func main() {
	addr := flag.String("addr", ":9000", "监听地址")
	failFirst := flag.Int("fail-first", 0, "前 N 次请求返回 503，用于观察重试")
	flag.Parse()

	slog.Info("starting fake bodypix", "addr", *addr, "fail_first", *failFirst)
	if err := http.ListenAndServe(*addr, newRouter(*failFirst)); err != nil {
		slog.Error("fake bodypix stopped", "error", err)
		os.Exit(1)
	}
}

func newRouter(failFirst int) *gin.Engine {
	var served atomic.Int64

	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/", func(c *gin.Context) {
		if n := served.Add(1); n <= int64(failFirst) {
			c.String(http.StatusServiceUnavailable, "warming up (%d/%d)", n, failFirst)
			return
		}

		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			c.String(http.StatusBadRequest, "body is not a png: %v", err)
			return
		}

		b := img.Bounds()
		slog.Debug("segment request", "width", b.Dx(), "height", b.Dy())
		c.Data(http.StatusOK, "application/octet-stream", ellipse(b.Dx(), b.Dy()))
	})
	return r
}

// ellipse 内切于画面中部 2/3 区域的椭圆，内部 255，外部 0
func ellipse(w, h int) []byte {
	out := make([]byte, w*h)
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := float64(w)/3, float64(h)/3
	if rx == 0 || ry == 0 {
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				out[y*w+x] = 255
			}
		}
	}
	return out
}
