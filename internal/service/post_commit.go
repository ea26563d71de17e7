package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"course_hub_backend/internal/config"
	"course_hub_backend/pkg/logger"

	"go.uber.org/zap"
)

const defaultHookTimeout = 3 * time.Second

// PostCommit 在主操作结果确定之后执行尽力而为的副作用。
// 钩子的错误和 panic 只记录日志，不会返回给调用方。
type PostCommit struct {
	mu      sync.RWMutex
	timeout time.Duration
	async   bool
	wg      sync.WaitGroup
}

func NewPostCommit(cfg config.ActivityConfig) *PostCommit {
	p := &PostCommit{}
	p.Configure(cfg)
	return p
}

// Configure 配置热更新时调用
func (p *PostCommit) Configure(cfg config.ActivityConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = cfg.Timeout
	if p.timeout <= 0 {
		p.timeout = defaultHookTimeout
	}
	p.async = cfg.Async
}

func (p *PostCommit) settings() (time.Duration, bool) {
	if p == nil {
		return defaultHookTimeout, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.timeout, p.async
}

// Run 执行钩子。ctx 被取消不会影响钩子，钩子有独立的超时。
func (p *PostCommit) Run(ctx context.Context, name string, hook func(ctx context.Context) error) {
	timeout, async := p.settings()

	run := func() {
		hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if err := safeCall(hookCtx, hook); err != nil {
			logger.Log.Warn("post-commit hook failed",
				zap.String("hook", name),
				zap.Error(err),
			)
		}
	}

	if !async {
		run()
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		run()
	}()
}

// Wait 等待所有异步钩子结束，优雅退出时使用
func (p *PostCommit) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}

func safeCall(ctx context.Context, hook func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook(ctx)
}
