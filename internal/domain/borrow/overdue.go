package borrow

import (
	"context"
	"time"
)

// OverdueLoan 逾期未还的借阅(报表读模型,联表带出书名与用户名)
type OverdueLoan struct {
	RecordID   string
	UserID     string
	Username   string
	BookID     string
	Title      string
	ISBN       string
	BorrowedAt time.Time
	DueDate    time.Time
}

// DaysOverdue 截至now逾期的整天数(不足一天按0)
func (l *OverdueLoan) DaysOverdue(now time.Time) int {
	if !now.After(l.DueDate) {
		return 0
	}
	return int(now.Sub(l.DueDate).Hours() / 24)
}

// OverdueQuery 逾期查询(只读,不参与事务)
type OverdueQuery interface {
	// FindOverdue 查询due_date早于now的未归还记录,按应还日期升序,最多limit条
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]*OverdueLoan, error)
}
