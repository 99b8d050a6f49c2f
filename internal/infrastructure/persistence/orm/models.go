package orm

import (
	"time"

	"gorm.io/gorm"
)

// 数据模型与领域实体分离，Repository负责两者之间的转换

// UserModel 用户表
type UserModel struct {
	ID           string         `gorm:"primaryKey;size:36"`
	Username     string         `gorm:"uniqueIndex;size:32;not null;comment:用户名"`
	PasswordHash string         `gorm:"size:255;not null;comment:密码(bcrypt)"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (UserModel) TableName() string {
	return "users"
}

// BookModel 图书表
// ISBN唯一索引包含已软删除的行，删除后ISBN不可复用
type BookModel struct {
	ID                string         `gorm:"primaryKey;size:36"`
	Title             string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author            string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	ISBN              string         `gorm:"column:isbn;uniqueIndex;size:20;not null;comment:ISBN"`
	PublicationYear   int            `gorm:"not null;default:0;comment:出版年份"`
	Description       string         `gorm:"type:text;comment:图书描述"`
	CoverURL          string         `gorm:"size:500;comment:封面URL"`
	CoverPath         string         `gorm:"size:500;comment:封面存储路径"`
	TotalQuantity     int            `gorm:"not null;default:0;comment:总量"`
	AvailableQuantity int            `gorm:"not null;default:0;comment:可借数量"`
	CreatedAt         time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt         time.Time      `gorm:"index;comment:更新时间"`
	DeletedAt         gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (BookModel) TableName() string {
	return "books"
}

// BorrowRecordModel 借阅记录表(只增不删)
type BorrowRecordModel struct {
	ID         string     `gorm:"primaryKey;size:36"`
	UserID     string     `gorm:"size:36;not null;index:idx_user_book,priority:1;comment:用户ID"`
	BookID     string     `gorm:"size:36;not null;index:idx_user_book,priority:2;index:idx_book;comment:图书ID"`
	BorrowedAt time.Time  `gorm:"not null;index;comment:借阅时间"`
	DueDate    time.Time  `gorm:"not null;index;comment:应还日期"`
	ReturnedAt *time.Time `gorm:"index;comment:归还时间(NULL表示未归还)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (BorrowRecordModel) TableName() string {
	return "borrow_records"
}

// StockLogModel 库存变更日志表(只增不改)
type StockLogModel struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	BookID          string    `gorm:"size:36;not null;index;comment:图书ID"`
	ChangeType      string    `gorm:"size:20;not null;comment:变更类型"`
	Delta           int       `gorm:"not null;comment:可借数量变化"`
	BeforeAvailable int       `gorm:"not null"`
	AfterAvailable  int       `gorm:"not null"`
	TotalQuantity   int       `gorm:"not null"`
	ReferenceID     string    `gorm:"size:36;index;comment:关联借阅记录ID"`
	CreatedAt       time.Time `gorm:"index"`
}

func (StockLogModel) TableName() string {
	return "stock_logs"
}
