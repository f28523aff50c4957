// Package control 提供运行时 HTTP 接口：健康检查、统计、重载、截图与 MJPEG 预览
package control

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/pipeline"
	"github.com/chaos-io/fakecam/scene"
)

// Pipeline 控制接口依赖的驱动能力
type Pipeline interface {
	Reload()
	Stats() pipeline.Stats
	Scene() *scene.Scene
	Last() *frame.Frame
}

type Options struct {
	SnapshotDir string
	// Stream 非空时挂载到 /stream.mjpeg
	Stream http.Handler
}

type Server struct {
	p    Pipeline
	opts Options
}

func New(p Pipeline, opts Options) *Server {
	return &Server{p: p, opts: opts}
}

// SceneInfo /scene 返回的场景描述
type SceneInfo struct {
	ID                 string    `json:"id"`
	LoadedAt           time.Time `json:"loaded_at"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	BackgroundFallback bool      `json:"background_fallback"`
	ForegroundFallback bool      `json:"foreground_fallback"`
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/stats", s.stats)
	r.GET("/scene", s.scene)
	r.POST("/reload", s.reload)
	r.GET("/snapshot.png", s.snapshot)
	r.POST("/snapshot", s.saveSnapshot)
	if s.opts.Stream != nil {
		r.GET("/stream.mjpeg", gin.WrapH(s.opts.Stream))
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	st := s.p.Stats()
	if st.State != pipeline.Running.String() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": st.State})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st.State})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.p.Stats())
}

func (s *Server) scene(c *gin.Context) {
	sc := s.p.Scene()
	if sc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scene loaded"})
		return
	}
	c.JSON(http.StatusOK, SceneInfo{
		ID:                 sc.ID.String(),
		LoadedAt:           sc.LoadedAt,
		Width:              sc.Background.Width,
		Height:             sc.Background.Height,
		BackgroundFallback: sc.BackgroundFallback,
		ForegroundFallback: sc.ForegroundFallback,
	})
}

func (s *Server) reload(c *gin.Context) {
	s.p.Reload()
	slog.Info("reload requested", "remote", c.ClientIP())
	c.JSON(http.StatusAccepted, gin.H{"status": "reload queued"})
}

func (s *Server) snapshot(c *gin.Context) {
	f := s.p.Last()
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame yet"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, f.RGBA()); err != nil {
		slog.Error("failed to encode snapshot", "error", err)
	}
}

func (s *Server) saveSnapshot(c *gin.Context) {
	f := s.p.Last()
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame yet"})
		return
	}

	path, err := SaveSnapshot(s.opts.SnapshotDir, f)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	slog.Info("saved snapshot", "path", path)
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

// SaveSnapshot 将帧保存为 dir/<ksuid>.png
func SaveSnapshot(dir string, f *frame.Frame) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, ksuid.New().String()+".png")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, f.RGBA()); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return path, nil
}

// ListenAndServe 启动服务，ctx 结束时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting control server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// MJPEG 长连接不会自行结束
		_ = srv.Close()
	}
	slog.Info("control server stopped")
	return nil
}
