// Package saga 多步骤操作的补偿编排
//
// 每个步骤包含正向操作与补偿操作；某步失败时按逆序补偿已完成的步骤。
// 目录服务用它把"保存封面文件"和"写入图书记录"组合成一个整体：
// 写库失败时删除已保存的封面，不留下孤儿文件。
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
)

// Step Saga中的一个步骤
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error // 可为nil
}

// Saga 一组有序步骤
type Saga struct {
	name    string
	steps   []Step
	timeout time.Duration
}

// New 创建Saga，timeout<=0表示不设整体超时
//
//	s := saga.New("create_book", 30*time.Second)
//	s.AddStep("save_cover", saveCover, removeCover)
//	s.AddStep("insert_book", insertBook, nil)
//	err := s.Execute(ctx)
func New(name string, timeout time.Duration) *Saga {
	return &Saga{
		name:    name,
		timeout: timeout,
	}
}

// AddStep 追加步骤（按添加顺序执行，逆序补偿）
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
	return s
}

// Execute 顺序执行所有步骤
//
// 失败时返回的错误包装了失败步骤的原始错误（errors.Is/As可用），
// 补偿失败会一并合入返回的错误并记录日志
func (s *Saga) Execute(ctx context.Context) (err error) {
	defer func() { metrics.ObserveSaga(s.name, err) }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	executed := make([]Step, 0, len(s.steps))
	for i, step := range s.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("saga[%s]在步骤[%d:%s]前中止: %w", s.name, i, step.Name, ctxErr)
			return s.compensate(ctx, executed, err)
		}

		if step.Action != nil {
			if actErr := step.Action(ctx); actErr != nil {
				err = fmt.Errorf("saga[%s]步骤[%d:%s]执行失败: %w", s.name, i, step.Name, actErr)
				return s.compensate(ctx, executed, err)
			}
		}
		executed = append(executed, step)
	}
	return nil
}

// compensate 逆序补偿，单个补偿失败不影响后续补偿
func (s *Saga) compensate(ctx context.Context, executed []Step, cause error) error {
	// 原ctx可能已超时或取消，补偿使用独立ctx
	compCtx := context.WithoutCancel(ctx)
	log := logger.WithContext(ctx)

	errs := []error{cause}
	for i := len(executed) - 1; i >= 0; i-- {
		step := executed[i]
		if step.Compensate == nil {
			continue
		}
		metrics.IncSagaCompensation(s.name)
		if err := step.Compensate(compCtx); err != nil {
			log.Error("saga补偿失败",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("补偿[%s]失败: %w", step.Name, err))
		}
	}

	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}
