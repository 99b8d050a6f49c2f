package borrow

import (
	"time"

	"github.com/google/uuid"
)

// Record 借阅记录
//
// 生命周期: 创建(ACTIVE) → 归还(RETURNED,终态)
// 归还后不会重新打开,再次借阅会创建新记录
type Record struct {
	ID         string
	UserID     string
	BookID     string
	BorrowedAt time.Time
	DueDate    time.Time
	ReturnedAt *time.Time // nil表示未归还
}

// NewRecord 创建借阅记录,dueDate = borrowedAt + loanDays天
func NewRecord(userID, bookID string, borrowedAt time.Time, loanDays int) *Record {
	return &Record{
		ID:         uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		DueDate:    borrowedAt.AddDate(0, 0, loanDays),
	}
}

// IsActive 是否未归还
func (r *Record) IsActive() bool {
	return r.ReturnedAt == nil
}

// IsOverdue 在now时刻是否逾期未还
func (r *Record) IsOverdue(now time.Time) bool {
	return r.IsActive() && now.After(r.DueDate)
}

// MarkReturned 标记归还(只能执行一次)
func (r *Record) MarkReturned(at time.Time) error {
	if !r.IsActive() {
		return ErrAlreadyReturned
	}
	r.ReturnedAt = &at
	return nil
}

// LoanDays 借期天数
func (r *Record) LoanDays() int {
	return int(r.DueDate.Sub(r.BorrowedAt).Hours() / 24)
}
