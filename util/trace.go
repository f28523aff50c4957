package util

import (
	"log/slog"
	"time"
)

// Trace 记录一段操作的耗时，用法：defer util.Trace("reload scene")()
func Trace(msg string) func() {
	start := time.Now()
	return func() {
		slog.Debug(msg, "elapsed", time.Since(start))
	}
}
