package book

import (
	"context"
)

// StockChange 一次库存调整的业务上下文(写入日志)
type StockChange struct {
	Type        ChangeType
	ReferenceID string
}

// Ledger 库存账本
//
// 所有可借数量/总量的变化都经过Ledger,保证:
//  1. 0 <= available <= total
//  2. 每次变化都有一条同事务的StockLog
//
// Ledger的方法必须在事务中调用(见TxManager),行锁在事务提交/回滚时释放
type Ledger struct {
	books Repository
	logs  LogRepository
}

// NewLedger 创建库存账本
func NewLedger(books Repository, logs LogRepository) *Ledger {
	return &Ledger{books: books, logs: logs}
}

// Adjust 调整可借数量,返回调整后的图书快照
//
// 错误:
//   - ErrBookNotFound
//   - ErrStockExhausted: available + delta < 0
//   - ErrStockOverflow: available + delta > total
func (l *Ledger) Adjust(ctx context.Context, bookID string, delta int, change StockChange) (*Book, error) {
	b, err := l.books.LockByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	before := b.AvailableQuantity
	if err := b.AdjustAvailable(delta); err != nil {
		return nil, err
	}

	// 带条件的UPDATE,即使锁失效也不会越界
	if err := l.books.UpdateAvailable(ctx, bookID, delta); err != nil {
		return nil, err
	}

	if err := l.logs.Append(ctx, &StockLog{
		BookID:          bookID,
		ChangeType:      change.Type,
		Delta:           delta,
		BeforeAvailable: before,
		AfterAvailable:  b.AvailableQuantity,
		TotalQuantity:   b.TotalQuantity,
		ReferenceID:     change.ReferenceID,
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Open 新书入账: 写入图书并记录init日志
func (l *Ledger) Open(ctx context.Context, b *Book) error {
	if b.AvailableQuantity != b.TotalQuantity {
		return ErrStockOverflow
	}
	if err := l.books.Create(ctx, b); err != nil {
		return err
	}
	return l.logs.Append(ctx, &StockLog{
		BookID:          b.ID,
		ChangeType:      ChangeInit,
		Delta:           b.AvailableQuantity,
		BeforeAvailable: 0,
		AfterAvailable:  b.AvailableQuantity,
		TotalQuantity:   b.TotalQuantity,
	})
}

// Resize 修改总量并保存图书,b必须是本事务中LockByID得到的快照
// 借出数量不变,可借数量随总量变化
func (l *Ledger) Resize(ctx context.Context, b *Book, newTotal int) error {
	before := b.AvailableQuantity
	if err := b.ChangeTotal(newTotal); err != nil {
		return err
	}
	if err := l.books.Update(ctx, b); err != nil {
		return err
	}
	if b.AvailableQuantity == before {
		return nil
	}
	return l.logs.Append(ctx, &StockLog{
		BookID:          b.ID,
		ChangeType:      ChangeRestock,
		Delta:           b.AvailableQuantity - before,
		BeforeAvailable: before,
		AfterAvailable:  b.AvailableQuantity,
		TotalQuantity:   b.TotalQuantity,
	})
}
