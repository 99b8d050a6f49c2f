// Package lending 借阅/归还用例
//
// 借阅与归还都在一个数据库事务中完成：锁定图书行 → 校验 → 调整库存 → 写借阅记录。
// 同一本书的并发请求由行锁串行化，不同图书互不影响。
package lending

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/retry"
	"github.com/xiebiao/library/pkg/tracing"
)

// publishTimeout 事务提交后发布事件的等待上限
const publishTimeout = 2 * time.Second

// TxManager 事务执行器(orm.TxManager)
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookCache 图书缓存失效
type BookCache interface {
	Invalidate(ctx context.Context, id string) error
}

// Engine 借阅引擎
type Engine struct {
	txManager TxManager
	books     book.Repository
	ledger    *book.Ledger
	records   borrow.Repository
	users     user.Repository
	overdue   borrow.OverdueQuery
	cache     BookCache
	publisher messaging.Publisher
	cfg       config.LendingConfig

	now func() time.Time
}

// NewEngine 创建借阅引擎
func NewEngine(
	txManager TxManager,
	books book.Repository,
	ledger *book.Ledger,
	records borrow.Repository,
	users user.Repository,
	overdue borrow.OverdueQuery,
	cache BookCache,
	publisher messaging.Publisher,
	cfg config.LendingConfig,
) *Engine {
	return &Engine{
		txManager: txManager,
		books:     books,
		ledger:    ledger,
		records:   records,
		users:     users,
		overdue:   overdue,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BorrowRequest 借阅请求
type BorrowRequest struct {
	BookID   string
	UserID   string // 从JWT中提取
	Quantity int
	LoanDays int // 0表示使用默认借期
}

// ReturnRequest 归还请求
type ReturnRequest struct {
	BookID   string
	UserID   string
	Quantity int
}

// Result 借阅/归还结果
type Result struct {
	Book    *book.Book
	Record  *borrow.Record
	Overdue bool // 归还时是否已逾期
}

// Borrow 借阅
//
// 流程(单个事务):
//  1. SELECT ... FOR UPDATE 锁定图书行
//  2. 校验图书、用户存在
//  3. 校验没有未归还的同书借阅
//  4. 可借数量-1(写库存日志)
//  5. 写借阅记录
//
// 死锁/锁等待超时时整个事务重试
func (e *Engine) Borrow(ctx context.Context, req BorrowRequest) (res *Result, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "lending.Borrow", trace.WithAttributes(
		attribute.String("book.id", req.BookID),
		attribute.String("user.id", req.UserID),
	))
	defer func() {
		tracing.EndSpan(span, err)
		metrics.ObserveLending("borrow", metrics.ResultOf(err), time.Since(start))
	}()

	loanDays, err := e.validateBorrow(req)
	if err != nil {
		return nil, err
	}

	err = e.withRetry(ctx, "borrow", func(ctx context.Context) error {
		res, err = e.borrowTx(ctx, req, loanDays)
		return err
	})
	if err != nil {
		e.logFailure(ctx, "借阅失败", req.BookID, req.UserID, err)
		return nil, err
	}

	e.afterCommit(ctx, req.BookID, messaging.RoutingBookBorrowed, messaging.BookBorrowed{
		RecordID:   res.Record.ID,
		UserID:     res.Record.UserID,
		BookID:     res.Record.BookID,
		BorrowedAt: res.Record.BorrowedAt,
		DueDate:    res.Record.DueDate,
		Available:  res.Book.AvailableQuantity,
	})

	logger.WithContext(ctx).Info("借阅成功",
		zap.String("record_id", res.Record.ID),
		zap.String("book_id", req.BookID),
		zap.String("user_id", req.UserID),
		zap.Time("due_date", res.Record.DueDate),
		zap.Int("available", res.Book.AvailableQuantity),
	)
	return res, nil
}

func (e *Engine) validateBorrow(req BorrowRequest) (int, error) {
	if req.UserID == "" {
		return 0, ErrMissingUserID
	}
	if req.Quantity != 1 {
		return 0, ErrInvalidQuantity
	}

	loanDays := req.LoanDays
	if loanDays == 0 {
		loanDays = e.cfg.DefaultLoanDays
	}
	if loanDays < 1 || (e.cfg.MaxLoanDays > 0 && loanDays > e.cfg.MaxLoanDays) {
		return 0, ErrInvalidLoanDays
	}
	return loanDays, nil
}

func (e *Engine) borrowTx(ctx context.Context, req BorrowRequest, loanDays int) (*Result, error) {
	var res *Result
	err := e.txManager.Transaction(ctx, func(ctx context.Context) error {
		if _, err := e.books.LockByID(ctx, req.BookID); err != nil {
			return err
		}

		exists, err := e.users.Exists(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return user.ErrUserNotFound
		}

		active, err := e.records.FindActive(ctx, req.UserID, req.BookID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrAlreadyBorrowed
		}

		record := borrow.NewRecord(req.UserID, req.BookID, e.now(), loanDays)

		updated, err := e.ledger.Adjust(ctx, req.BookID, -req.Quantity, book.StockChange{
			Type:        book.ChangeBorrow,
			ReferenceID: record.ID,
		})
		if err != nil {
			if errors.Is(err, book.ErrStockExhausted) {
				return ErrInsufficientStock
			}
			return err
		}

		if err := e.records.Create(ctx, record); err != nil {
			return err
		}

		res = &Result{Book: updated, Record: record}
		return nil
	})
	return res, err
}

// Return 归还
//
// 流程(单个事务):
//  1. 锁定图书行
//  2. 查找未归还记录
//  3. 可借数量+1(写库存日志)
//  4. 写入归还时间
func (e *Engine) Return(ctx context.Context, req ReturnRequest) (res *Result, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "lending.Return", trace.WithAttributes(
		attribute.String("book.id", req.BookID),
		attribute.String("user.id", req.UserID),
	))
	defer func() {
		tracing.EndSpan(span, err)
		metrics.ObserveLending("return", metrics.ResultOf(err), time.Since(start))
	}()

	if req.UserID == "" {
		return nil, ErrMissingUserID
	}
	if req.Quantity != 1 {
		return nil, ErrInvalidQuantity
	}

	err = e.withRetry(ctx, "return", func(ctx context.Context) error {
		res, err = e.returnTx(ctx, req)
		return err
	})
	if err != nil {
		e.logFailure(ctx, "归还失败", req.BookID, req.UserID, err)
		return nil, err
	}

	e.afterCommit(ctx, req.BookID, messaging.RoutingBookReturned, messaging.BookReturned{
		RecordID:   res.Record.ID,
		UserID:     res.Record.UserID,
		BookID:     res.Record.BookID,
		ReturnedAt: *res.Record.ReturnedAt,
		Overdue:    res.Overdue,
		Available:  res.Book.AvailableQuantity,
	})

	logger.WithContext(ctx).Info("归还成功",
		zap.String("record_id", res.Record.ID),
		zap.String("book_id", req.BookID),
		zap.String("user_id", req.UserID),
		zap.Int("available", res.Book.AvailableQuantity),
	)
	return res, nil
}

func (e *Engine) returnTx(ctx context.Context, req ReturnRequest) (*Result, error) {
	var res *Result
	err := e.txManager.Transaction(ctx, func(ctx context.Context) error {
		if _, err := e.books.LockByID(ctx, req.BookID); err != nil {
			return err
		}

		active, err := e.records.FindActive(ctx, req.UserID, req.BookID)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrNoActiveBorrow
		}

		now := e.now()
		overdue := active.IsOverdue(now)
		if err := active.MarkReturned(now); err != nil {
			return err
		}

		updated, err := e.ledger.Adjust(ctx, req.BookID, req.Quantity, book.StockChange{
			Type:        book.ChangeReturn,
			ReferenceID: active.ID,
		})
		if err != nil {
			if errors.Is(err, book.ErrStockOverflow) {
				return ErrInvalidState
			}
			return err
		}

		record, err := e.records.MarkReturned(ctx, active.ID, now)
		if err != nil {
			return err
		}

		res = &Result{Book: updated, Record: record, Overdue: overdue}
		return nil
	})
	return res, err
}

// UserHistory 用户借阅历史(借阅时间倒序)
func (e *Engine) UserHistory(ctx context.Context, userID string, activeOnly bool) ([]*borrow.Record, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return e.records.ListByUser(ctx, userID, borrow.Filter{ActiveOnly: activeOnly})
}

// BookHistory 图书借阅历史(借阅时间倒序)，图书不存在返回ErrBookNotFound
func (e *Engine) BookHistory(ctx context.Context, bookID string, activeOnly bool) ([]*borrow.Record, error) {
	if _, err := e.books.FindByID(ctx, bookID); err != nil {
		return nil, err
	}
	return e.records.ListByBook(ctx, bookID, borrow.Filter{ActiveOnly: activeOnly})
}

// ListOverdue 当前逾期未还的借阅
func (e *Engine) ListOverdue(ctx context.Context, limit int) ([]*borrow.OverdueLoan, time.Time, error) {
	now := e.now()
	loans, err := e.overdue.FindOverdue(ctx, now, limit)
	if err != nil {
		return nil, now, err
	}
	return loans, now, nil
}

// withRetry 行锁冲突时重试整个事务
func (e *Engine) withRetry(ctx context.Context, operation string, fn retry.Func) error {
	return retry.Do(ctx, fn,
		retry.WithMaxAttempts(max(e.cfg.RetryAttempts, 1)),
		retry.WithBaseDelay(e.cfg.RetryBaseDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			metrics.IncLockConflictRetry(operation)
			logger.WithContext(ctx).Warn("行锁冲突，重试事务",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}),
	)
}

// afterCommit 事务提交后的副作用，失败只记录日志
func (e *Engine) afterCommit(ctx context.Context, bookID, routingKey string, event interface{}) {
	// 请求可能已经结束，副作用不跟随请求取消
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx)

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, bookID); err != nil {
			log.Warn("删除图书缓存失败", zap.String("book_id", bookID), zap.Error(err))
		}
	}

	if e.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := e.publisher.Publish(pubCtx, routingKey, event); err != nil {
			log.Warn("发布事件失败", zap.String("routing_key", routingKey), zap.Error(err))
		}
	}
}

func (e *Engine) logFailure(ctx context.Context, msg, bookID, userID string, err error) {
	fields := []zap.Field{
		zap.String("book_id", bookID),
		zap.String("user_id", userID),
		zap.Error(err),
	}
	if apperrors.HasCode(err, apperrors.ErrCodeInvalidState) {
		logger.WithContext(ctx).Error(msg, fields...)
		return
	}
	logger.WithContext(ctx).Info(msg, fields...)
}
