// Package config 读取 YAML 配置，缺省项使用内置默认值
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaos-io/fakecam/segment"
	"github.com/chaos-io/fakecam/vcam"
)

type Config struct {
	Capture      CaptureConfig      `yaml:"capture"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Scene        SceneConfig        `yaml:"scene"`
	Output       OutputConfig       `yaml:"output"`
	Control      ControlConfig      `yaml:"control"`
	Reload       ReloadConfig       `yaml:"reload"`
}

type CaptureConfig struct {
	Device string  `yaml:"device"` // /dev/video0 或设备索引
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	FPS    float64 `yaml:"fps"`
	Still  string  `yaml:"still"` // 非空时循环播放该图片代替摄像头
}

type SegmentationConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	ScaleFactor float64       `yaml:"scale_factor"`
	Dilate      int           `yaml:"dilate"`
	Blur        int           `yaml:"blur"`
	Timeout     time.Duration `yaml:"timeout"`
	Retry       RetryConfig   `yaml:"retry"`
	MaskShiftX  int           `yaml:"mask_shift_x"`
	MaskShiftY  int           `yaml:"mask_shift_y"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"` // 0 = 不限
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type SceneConfig struct {
	Background string `yaml:"background"`
	Foreground string `yaml:"foreground"`
	OnMissing  string `yaml:"on_missing"` // fail | solid
	Color      string `yaml:"color"`      // solid 策略使用的 #rrggbb
}

type OutputConfig struct {
	Device       string `yaml:"device"` // v4l2loopback 设备，空表示不写设备
	MJPEG        bool   `yaml:"mjpeg"`
	MJPEGQuality int    `yaml:"mjpeg_quality"`
}

type ControlConfig struct {
	Addr        string `yaml:"addr"` // 空表示不启动控制接口
	SnapshotDir string `yaml:"snapshot_dir"`
}

type ReloadConfig struct {
	Schedule string `yaml:"schedule"` // cron 表达式，空表示不定时重载
}

func Default() *Config {
	seg := segment.DefaultOptions()
	retry := segment.DefaultPolicy()
	return &Config{
		Capture: CaptureConfig{
			Device: "/dev/video0",
			Width:  1280,
			Height: 720,
			FPS:    30,
		},
		Segmentation: SegmentationConfig{
			Endpoint:    seg.Endpoint,
			ScaleFactor: seg.ScaleFactor,
			Dilate:      seg.Dilate,
			Blur:        seg.Blur,
			Timeout:     10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:    retry.MaxAttempts,
				InitialBackoff: retry.InitialBackoff,
				MaxBackoff:     retry.MaxBackoff,
			},
		},
		Scene: SceneConfig{
			Background: "background.jpg",
			Foreground: "foreground.jpg",
			OnMissing:  "fail",
			Color:      "#00b140",
		},
		Output: OutputConfig{
			Device:       vcam.DefaultDevice,
			MJPEGQuality: vcam.DefaultJPEGQuality,
		},
		Control: ControlConfig{
			Addr:        "127.0.0.1:8090",
			SnapshotDir: "snapshots",
		},
	}
}

// Load 读取配置文件；path 为空时返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate 校验配置
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Capture.Width <= 0 || cfg.Capture.Height <= 0 {
		errs = append(errs, fmt.Errorf("capture resolution must be > 0, got %dx%d", cfg.Capture.Width, cfg.Capture.Height))
	}
	if cfg.Capture.FPS <= 0 {
		errs = append(errs, fmt.Errorf("capture.fps must be > 0"))
	}
	if cfg.Capture.Device == "" && cfg.Capture.Still == "" {
		errs = append(errs, errors.New("capture.device or capture.still is required"))
	}

	seg := cfg.Segmentation
	if seg.Endpoint == "" {
		errs = append(errs, errors.New("segmentation.endpoint is required"))
	}
	if seg.ScaleFactor <= 0 || seg.ScaleFactor > 1 {
		errs = append(errs, fmt.Errorf("segmentation.scale_factor must be in (0, 1], got %v", seg.ScaleFactor))
	}
	if seg.Dilate < 0 || seg.Blur < 0 {
		errs = append(errs, errors.New("segmentation.dilate and segmentation.blur must be >= 0"))
	}
	if seg.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("segmentation.retry.max_attempts must be >= 0"))
	}
	if seg.Retry.InitialBackoff < 0 || seg.Retry.MaxBackoff < 0 {
		errs = append(errs, errors.New("segmentation.retry backoff must be >= 0"))
	}
	if seg.Retry.MaxBackoff > 0 && seg.Retry.InitialBackoff > seg.Retry.MaxBackoff {
		errs = append(errs, errors.New("segmentation.retry.initial_backoff exceeds max_backoff"))
	}

	if cfg.Scene.Background == "" && cfg.Scene.OnMissing != "solid" {
		errs = append(errs, errors.New("scene.background is required unless scene.on_missing is solid"))
	}
	switch cfg.Scene.OnMissing {
	case "fail", "solid":
	case "":
		cfg.Scene.OnMissing = "fail"
	default:
		errs = append(errs, fmt.Errorf("scene.on_missing must be fail or solid, got %q", cfg.Scene.OnMissing))
	}
	if _, err := ParseColor(cfg.Scene.Color); err != nil {
		errs = append(errs, fmt.Errorf("scene.color: %w", err))
	}

	if cfg.Output.Device == "" && !cfg.Output.MJPEG {
		errs = append(errs, errors.New("no output: set output.device or enable output.mjpeg"))
	}
	if cfg.Output.MJPEG && cfg.Control.Addr == "" {
		errs = append(errs, errors.New("output.mjpeg requires control.addr"))
	}

	return errors.Join(errs...)
}

// ParseColor 解析 #rrggbb
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("want #rrggbb, got %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("want #rrggbb, got %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
