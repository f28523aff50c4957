package vcam

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"sync/atomic"

	"github.com/chaos-io/fakecam/frame"
)

const DefaultJPEGQuality = 80

// MJPEG 以 multipart/x-mixed-replace 推送最新帧。
// 没有观看者时 Write 不做编码。
type MJPEG struct {
	quality int

	mu      sync.RWMutex
	current []byte
	updated chan struct{}

	viewers   atomic.Int32
	closed    chan struct{}
	closeOnce sync.Once
}

func NewMJPEG(quality int) *MJPEG {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &MJPEG{
		quality: quality,
		updated: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (m *MJPEG) Viewers() int {
	return int(m.viewers.Load())
}

func (m *MJPEG) Write(f *frame.Frame) error {
	if m.viewers.Load() == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.RGBA(), &jpeg.Options{Quality: m.quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	m.mu.Lock()
	m.current = buf.Bytes()
	close(m.updated)
	m.updated = make(chan struct{})
	m.mu.Unlock()
	return nil
}

func (m *MJPEG) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *MJPEG) wait() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

func (m *MJPEG) latest() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.viewers.Add(1)
	defer m.viewers.Add(-1)

	slog.Info("mjpeg client connected", "remote", r.RemoteAddr)
	defer slog.Info("mjpeg client disconnected", "remote", r.RemoteAddr)

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-m.closed:
			return
		case <-m.wait():
		}

		data := m.latest()
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", "image/jpeg")
		header.Set("Content-Length", fmt.Sprint(len(data)))
		part, err := mw.CreatePart(header)
		if err != nil {
			return
		}
		if _, err := part.Write(data); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
