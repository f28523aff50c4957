package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/chaos-io/fakecam/capture"
	"github.com/chaos-io/fakecam/capture/camera"
	"github.com/chaos-io/fakecam/config"
	"github.com/chaos-io/fakecam/control"
	"github.com/chaos-io/fakecam/frame"
	"github.com/chaos-io/fakecam/pipeline"
	"github.com/chaos-io/fakecam/scene"
	"github.com/chaos-io/fakecam/segment"
	"github.com/chaos-io/fakecam/vcam"
)

type flags struct {
	config    string
	debug     bool
	logFormat string

	background string
	foreground string
	input      string
	still      string
	output     string
	endpoint   string
	addr       string
	mjpeg      bool
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "", "YAML 配置文件路径")
	flag.BoolVar(&f.debug, "debug", false, "输出 debug 日志")
	flag.StringVar(&f.logFormat, "log-format", "text", "日志格式：text 或 json")
	flag.StringVar(&f.background, "background", "", "背景图（路径或 URL）")
	flag.StringVar(&f.foreground, "foreground", "", "前景遮罩图（路径或 URL）")
	flag.StringVar(&f.input, "input", "", "采集设备，例如 /dev/video0")
	flag.StringVar(&f.still, "still", "", "用静态图片代替摄像头")
	flag.StringVar(&f.output, "output", "", "v4l2loopback 输出设备，例如 /dev/video2")
	flag.StringVar(&f.endpoint, "endpoint", "", "bodypix 分割服务地址")
	flag.StringVar(&f.addr, "addr", "", "控制接口监听地址")
	flag.BoolVar(&f.mjpeg, "mjpeg", false, "在 /stream.mjpeg 提供预览")
	flag.Parse()

	setupLogger(f.debug, f.logFormat)

	cfg, err := loadConfig(f)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		slog.Error("fakecam stopped", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool, format string) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Scene.Background, f.background)
	set(&cfg.Scene.Foreground, f.foreground)
	set(&cfg.Capture.Device, f.input)
	set(&cfg.Capture.Still, f.still)
	set(&cfg.Output.Device, f.output)
	set(&cfg.Segmentation.Endpoint, f.endpoint)
	set(&cfg.Control.Addr, f.addr)
	if f.mjpeg {
		cfg.Output.MJPEG = true
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := openSource(ctx, cfg.Capture)
	if err != nil {
		return err
	}
	defer src.Close()

	sink, preview, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	bodypix := segment.NewBodyPix(segment.Options{
		Endpoint:    cfg.Segmentation.Endpoint,
		ScaleFactor: cfg.Segmentation.ScaleFactor,
		Dilate:      cfg.Segmentation.Dilate,
		Blur:        cfg.Segmentation.Blur,
		Timeout:     cfg.Segmentation.Timeout,
	})
	masker := segment.NewRetrier(bodypix, segment.Policy{
		MaxAttempts:    cfg.Segmentation.Retry.MaxAttempts,
		InitialBackoff: cfg.Segmentation.Retry.InitialBackoff,
		MaxBackoff:     cfg.Segmentation.Retry.MaxBackoff,
	})

	solid, _ := config.ParseColor(cfg.Scene.Color)
	store := scene.NewStore(scene.Options{
		Width:      cfg.Capture.Width,
		Height:     cfg.Capture.Height,
		Order:      frame.BGR,
		Background: cfg.Scene.Background,
		Foreground: cfg.Scene.Foreground,
		OnMissing:  scene.MissingPolicy(cfg.Scene.OnMissing),
		Color:      solid,
	})

	driver := pipeline.New(src, masker, store, sink, pipeline.Options{
		MaskShift: image.Pt(cfg.Segmentation.MaskShiftX, cfg.Segmentation.MaskShiftY),
	})

	if cfg.Reload.Schedule != "" {
		c, err := driver.Schedule(cfg.Reload.Schedule)
		if err != nil {
			return err
		}
		defer c.Stop()
		slog.Info("scheduled reload", "schedule", cfg.Reload.Schedule)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return driver.Run(ctx)
	})

	if cfg.Control.Addr != "" {
		opts := control.Options{SnapshotDir: cfg.Control.SnapshotDir}
		if preview != nil {
			opts.Stream = preview
			// 预览长连接随 ctx 一起结束，否则关闭服务时要等超时
			g.Go(func() error {
				<-ctx.Done()
				return preview.Close()
			})
		}
		srv := control.New(driver, opts)
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.Control.Addr)
		})
	}

	g.Go(func() error {
		return handleSignals(ctx, driver, cancel)
	})

	fmt.Println("Running...")
	fmt.Println("Please press CTRL-\\ to exit.")
	fmt.Println("Please CTRL-C to reload the background and foreground images")

	err = g.Wait()
	slog.Info("fakecam exiting",
		"frames", driver.Stats().Frames,
		"mask_attempts", masker.Attempts(),
		"mask_failures", masker.Failures(),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleSignals SIGINT 触发重载，SIGQUIT/SIGTERM 退出
func handleSignals(ctx context.Context, driver *pipeline.Driver, cancel context.CancelFunc) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigs:
			if sig == syscall.SIGINT {
				slog.Info("reload requested", "signal", sig.String())
				driver.Reload()
				continue
			}
			slog.Info("terminating", "signal", sig.String())
			cancel()
			return nil
		}
	}
}

func openSource(ctx context.Context, c config.CaptureConfig) (pipeline.Source, error) {
	if c.Still != "" {
		return capture.NewLoop(ctx, c.Still, c.Width, c.Height, c.FPS)
	}
	return camera.Open(camera.Options{
		Device: c.Device,
		Width:  c.Width,
		Height: c.Height,
		FPS:    c.FPS,
	})
}

func openSink(cfg *config.Config) (pipeline.Sink, *vcam.MJPEG, error) {
	var (
		tee     vcam.Tee
		preview *vcam.MJPEG
	)

	if cfg.Output.Device != "" {
		dev, err := vcam.OpenV4L2(cfg.Output.Device, cfg.Capture.Width, cfg.Capture.Height)
		if err != nil {
			return nil, nil, err
		}
		tee = append(tee, dev)
	}
	if cfg.Output.MJPEG {
		preview = vcam.NewMJPEG(cfg.Output.MJPEGQuality)
		tee = append(tee, preview)
	}
	return tee, preview, nil
}
