package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Schedule 按 cron 表达式（如 "0 * * * *"、"@every 30m"）周期性请求重载。
// 返回已启动的 cron 实例，由调用方 Stop。
func (d *Driver) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		slog.Info("scheduled scene reload", "schedule", spec)
		d.Reload()
	})
	if err != nil {
		return nil, fmt.Errorf("parse reload schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
