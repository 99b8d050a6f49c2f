package dto

import (
	"time"

	"github.com/xiebiao/library/internal/domain/borrow"
)

// BorrowRequest 借阅请求，qty默认1，days为0时使用默认借期
type BorrowRequest struct {
	Qty  int `json:"qty" binding:"omitempty,min=1,max=10" example:"1"`
	Days int `json:"days" binding:"omitempty,min=1,max=30" example:"7"`
}

// ReturnRequest 归还请求
type ReturnRequest struct {
	Qty int `json:"qty" binding:"omitempty,min=1,max=10" example:"1"`
}

// HistoryRequest 历史查询参数
type HistoryRequest struct {
	Active bool `form:"active"`
}

// OverdueRequest 逾期查询参数
type OverdueRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// BorrowRecordResponse 借阅记录
type BorrowRecordResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	BookID     string `json:"book_id"`
	BorrowedAt string `json:"borrowed_at"`
	DueDate    string `json:"due_date"`
	LoanDays   int    `json:"loan_days"`
	ReturnedAt string `json:"returned_at,omitempty"`
	Status     string `json:"status"` // active/returned
}

// LendingResponse 借阅/归还结果
type LendingResponse struct {
	Book   *BookResponse         `json:"book"`
	Record *BorrowRecordResponse `json:"record"`
}

// OverdueLoanResponse 逾期借阅
type OverdueLoanResponse struct {
	RecordID    string `json:"record_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	BookID      string `json:"book_id"`
	Title       string `json:"title"`
	ISBN        string `json:"isbn"`
	BorrowedAt  string `json:"borrowed_at"`
	DueDate     string `json:"due_date"`
	DaysOverdue int    `json:"days_overdue"`
}

// NewBorrowRecordResponse 借阅记录转换
func NewBorrowRecordResponse(r *borrow.Record) *BorrowRecordResponse {
	resp := &BorrowRecordResponse{
		ID:         r.ID,
		UserID:     r.UserID,
		BookID:     r.BookID,
		BorrowedAt: FormatTime(r.BorrowedAt),
		DueDate:    FormatTime(r.DueDate),
		LoanDays:   r.LoanDays(),
		Status:     "active",
	}
	if r.ReturnedAt != nil {
		resp.ReturnedAt = FormatTime(*r.ReturnedAt)
		resp.Status = "returned"
	}
	return resp
}

// NewBorrowRecordList 借阅历史转换
func NewBorrowRecordList(records []*borrow.Record) []*BorrowRecordResponse {
	items := make([]*BorrowRecordResponse, 0, len(records))
	for _, r := range records {
		items = append(items, NewBorrowRecordResponse(r))
	}
	return items
}

// NewOverdueList 逾期列表转换
func NewOverdueList(loans []*borrow.OverdueLoan, now time.Time) []OverdueLoanResponse {
	items := make([]OverdueLoanResponse, 0, len(loans))
	for _, l := range loans {
		items = append(items, OverdueLoanResponse{
			RecordID:    l.RecordID,
			UserID:      l.UserID,
			Username:    l.Username,
			BookID:      l.BookID,
			Title:       l.Title,
			ISBN:        l.ISBN,
			BorrowedAt:  FormatTime(l.BorrowedAt),
			DueDate:     FormatTime(l.DueDate),
			DaysOverdue: l.DaysOverdue(now),
		})
	}
	return items
}
