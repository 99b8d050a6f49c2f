// Package retry 指数退避重试
//
// 只重试行锁冲突(ErrLockConflict)，其他错误立即返回。
// 事务因死锁/锁等待超时被数据库回滚，失败的那次尝试没有提交任何数据，重新执行整个事务是安全的。
//
// 退避由cenkalti/backoff计算：20ms, 40ms, 80ms ...(±30%抖动，上限1s)
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 20 * time.Millisecond
	defaultMaxDelay     = time.Second
	randomizationFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts 最大尝试次数必须为正数
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay 基础延迟不能为负
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")
)

// Func 可重试的函数
type Func func(ctx context.Context) error

type config struct {
	maxAttempts int
	baseDelay   time.Duration
	onRetry     func(attempt int, err error, delay time.Duration)
}

// Option 函数式选项
type Option func(*config) error

// Do 执行fn，遇到行锁冲突时按指数退避重试
// context取消时立即返回ctx.Err()
func Do(ctx context.Context, fn Func, opts ...Option) error {
	cfg := &config{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return err
		}
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.baseDelay
	exp.RandomizationFactor = randomizationFactor
	exp.Multiplier = 2
	exp.MaxInterval = max(defaultMaxDelay, cfg.baseDelay)
	exp.MaxElapsedTime = 0 // 只按次数限制

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cfg.maxAttempts-1)), ctx)

	operation := func() error {
		err := fn(ctx)
		if err != nil && !IsLockConflict(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	attempt := 0
	notify := func(err error, delay time.Duration) {
		attempt++
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err, delay)
		}
	}

	return backoff.RetryNotify(operation, policy, notify)
}

// IsLockConflict 可重试判断
func IsLockConflict(err error) bool {
	return errors.Is(err, apperrors.ErrLockConflict)
}

// WithMaxAttempts 设置最大尝试次数（含首次）
func WithMaxAttempts(attempts int) Option {
	return func(c *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay 设置首次重试前的退避时间
func WithBaseDelay(delay time.Duration) Option {
	return func(c *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = delay
		return nil
	}
}

// WithOnRetry 每次重试前回调（记录日志/指标）
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *config) error {
		c.onRetry = fn
		return nil
	}
}
