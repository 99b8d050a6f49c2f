// Package worker 后台定时任务
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
)

// OverdueLister 逾期查询(lending.Engine)
type OverdueLister interface {
	ListOverdue(ctx context.Context, limit int) ([]*borrow.OverdueLoan, time.Time, error)
}

// OverdueNotifier 定时扫描逾期未还的借阅，更新指标并发布loan.overdue事件
//
// 每笔借阅每个逾期天数只提醒一次；记录保存在内存中，进程重启后当天会再提醒一次
type OverdueNotifier struct {
	lister    OverdueLister
	publisher messaging.Publisher
	interval  time.Duration
	batchSize int

	notified map[string]int // record_id → 已提醒的逾期天数，只在Run的goroutine中访问
}

// NewOverdueNotifier 创建逾期提醒任务
func NewOverdueNotifier(lister OverdueLister, publisher messaging.Publisher, interval time.Duration, batchSize int) *OverdueNotifier {
	if interval <= 0 {
		interval = time.Hour
	}
	return &OverdueNotifier{
		lister:    lister,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		notified:  make(map[string]int),
	}
}

// Run 启动后立即扫描一次，之后按间隔扫描，ctx取消时返回
func (n *OverdueNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log := logger.L().With(zap.String("worker", "overdue_notifier"))
	log.Info("逾期提醒任务已启动", zap.Duration("interval", n.interval))

	n.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("逾期提醒任务已停止")
			return
		case <-ticker.C:
			n.scan(ctx)
		}
	}
}

// scan 单次扫描，返回发布成功的事件数
func (n *OverdueNotifier) scan(ctx context.Context) int {
	log := logger.WithContext(ctx)

	loans, now, err := n.lister.ListOverdue(ctx, n.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("查询逾期借阅失败", zap.Error(err))
		}
		return 0
	}

	metrics.SetOverdueLoans(len(loans))
	n.forgetResolved(loans)
	if len(loans) == 0 {
		return 0
	}
	log.Info("发现逾期借阅", zap.Int("count", len(loans)))

	published := 0
	for _, loan := range loans {
		if ctx.Err() != nil {
			break
		}
		days := loan.DaysOverdue(now)
		if last, ok := n.notified[loan.RecordID]; ok && last == days {
			continue
		}
		event := &messaging.LoanOverdue{
			RecordID:    loan.RecordID,
			UserID:      loan.UserID,
			Username:    loan.Username,
			BookID:      loan.BookID,
			Title:       loan.Title,
			DueDate:     loan.DueDate,
			DaysOverdue: days,
		}
		if err := n.publisher.Publish(ctx, messaging.RoutingLoanOverdue, event); err != nil {
			// 熔断打开时后续发布同样会失败，留到下一轮
			log.Warn("发布逾期事件失败",
				zap.String("record_id", loan.RecordID),
				zap.Error(err),
			)
			break
		}
		n.notified[loan.RecordID] = days
		published++
	}
	return published
}

// forgetResolved 清理已归还(不再逾期)的记录
func (n *OverdueNotifier) forgetResolved(loans []*borrow.OverdueLoan) {
	current := make(map[string]struct{}, len(loans))
	for _, loan := range loans {
		current[loan.RecordID] = struct{}{}
	}
	for id := range n.notified {
		if _, ok := current[id]; !ok {
			delete(n.notified, id)
		}
	}
}
