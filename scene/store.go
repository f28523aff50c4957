package scene

import (
	"context"
	"sync/atomic"
)

// Store 持有当前 Scene。重载先完整构造新 Scene 再整体替换指针，
// 读者看到的要么是旧三元组，要么是新三元组。
type Store struct {
	opts    Options
	current atomic.Pointer[Scene]
	load    func(context.Context, Options) (*Scene, error)
}

func NewStore(opts Options) *Store {
	return &Store{opts: opts, load: Load}
}

func (s *Store) Options() Options {
	return s.opts
}

// Current 返回当前 Scene，尚未加载时为 nil
func (s *Store) Current() *Scene {
	return s.current.Load()
}

// Reload 加载新 Scene 并替换；失败时保留原 Scene
func (s *Store) Reload(ctx context.Context) (*Scene, error) {
	next, err := s.load(ctx, s.opts)
	if err != nil {
		return nil, err
	}
	s.current.Store(next)
	return next, nil
}
