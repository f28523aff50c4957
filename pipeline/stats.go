package pipeline

import (
	"math"
	"sync/atomic"
	"time"
)

type Stats struct {
	State          string        `json:"state"`
	Scene          string        `json:"scene,omitempty"`
	Frames         uint64        `json:"frames"`
	Reloads        uint64        `json:"reloads"`
	ReloadFailures uint64        `json:"reload_failures"`
	MaskFallbacks  uint64        `json:"mask_fallbacks"`
	LastCycle      time.Duration `json:"last_cycle_ns"`
	FPS            float64       `json:"fps"`
}

type counters struct {
	frames         atomic.Uint64
	reloads        atomic.Uint64
	reloadFailures atomic.Uint64
	maskFallbacks  atomic.Uint64
	lastCycle      atomic.Int64
	fps            atomic.Uint64 // math.Float64bits

	// 以下仅由 Run 所在 goroutine 访问
	windowStart  time.Time
	windowFrames int
}

// observe 记录一帧完成，按一秒窗口统计帧率
func (c *counters) observe(elapsed time.Duration) {
	c.frames.Add(1)
	c.lastCycle.Store(int64(elapsed))

	now := time.Now()
	if c.windowStart.IsZero() {
		c.windowStart = now
	}
	c.windowFrames++
	if window := now.Sub(c.windowStart); window >= time.Second {
		c.fps.Store(math.Float64bits(float64(c.windowFrames) / window.Seconds()))
		c.windowStart = now
		c.windowFrames = 0
	}
}

func (d *Driver) Stats() Stats {
	s := Stats{
		State:          d.State().String(),
		Frames:         d.stats.frames.Load(),
		Reloads:        d.stats.reloads.Load(),
		ReloadFailures: d.stats.reloadFailures.Load(),
		MaskFallbacks:  d.stats.maskFallbacks.Load(),
		LastCycle:      time.Duration(d.stats.lastCycle.Load()),
		FPS:            math.Float64frombits(d.stats.fps.Load()),
	}
	if sc := d.store.Current(); sc != nil {
		s.Scene = sc.ID.String()
	}
	return s
}
