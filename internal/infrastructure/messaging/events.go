package messaging

import "time"

// 路由键
const (
	RoutingBookBorrowed = "book.borrowed"
	RoutingBookReturned = "book.returned"
	RoutingLoanOverdue  = "loan.overdue"
)

// BookBorrowed 借阅成功事件
type BookBorrowed struct {
	RecordID   string    `json:"record_id"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
	Available  int       `json:"available_quantity"`
}

// BookReturned 归还成功事件
type BookReturned struct {
	RecordID   string    `json:"record_id"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	ReturnedAt time.Time `json:"returned_at"`
	Overdue    bool      `json:"overdue"`
	Available  int       `json:"available_quantity"`
}

// LoanOverdue 逾期提醒事件
type LoanOverdue struct {
	RecordID    string    `json:"record_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	BookID      string    `json:"book_id"`
	Title       string    `json:"title"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}
