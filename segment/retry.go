package segment

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chaos-io/fakecam/frame"
)

// Policy 遮罩请求的重试策略
type Policy struct {
	// MaxAttempts 单帧最多尝试次数，0 表示不限（一直等到服务可用）
	MaxAttempts int
	// InitialBackoff 首次失败后的等待，之后每次翻倍；0 表示立即重试
	InitialBackoff time.Duration
	// MaxBackoff 等待上限，0 表示使用 DefaultMaxBackoff
	MaxBackoff time.Duration
}

const DefaultMaxBackoff = 2 * time.Second

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    0,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

// backoff 第 attempt 次失败后的等待：InitialBackoff * 2^(attempt-1)，不超过上限。
// MaxBackoff <= 0 时上限取 DefaultMaxBackoff 与 InitialBackoff 中较大者。
func (p Policy) backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	limit := p.MaxBackoff
	if limit <= 0 {
		limit = max(DefaultMaxBackoff, p.InitialBackoff)
	}
	delay := p.InitialBackoff << uint(min(attempt-1, 30))
	if delay > limit || delay <= 0 {
		delay = limit
	}
	return delay
}

// Retrier 包装一个 Segmenter，失败时按 Policy 重试，直到成功、次数用尽或 ctx 结束
type Retrier struct {
	next   Segmenter
	policy Policy

	attempts atomic.Uint64
	failures atomic.Uint64
}

func NewRetrier(next Segmenter, policy Policy) *Retrier {
	return &Retrier{next: next, policy: policy}
}

func (r *Retrier) Mask(ctx context.Context, f *frame.Frame) (*frame.Mask, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.attempts.Add(1)
		m, err := r.next.Mask(ctx, f)
		if err == nil {
			return m, nil
		}
		r.failures.Add(1)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if r.policy.MaxAttempts > 0 && attempt >= r.policy.MaxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
		}

		delay := r.policy.backoff(attempt)
		slog.Warn("mask request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		if delay == 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// Attempts 累计请求次数
func (r *Retrier) Attempts() uint64 {
	return r.attempts.Load()
}

// Failures 累计失败次数
func (r *Retrier) Failures() uint64 {
	return r.failures.Load()
}
