package book

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CoverImage 封面图片（由文件存储返回）
type CoverImage struct {
	URL  string // 对外访问地址
	Path string // 存储路径（删除文件时使用）
}

// IsEmpty 是否未设置封面
func (c CoverImage) IsEmpty() bool {
	return c.URL == "" && c.Path == ""
}

// Book 图书实体(聚合根)
// 库存规则: 0 <= AvailableQuantity <= TotalQuantity
// - TotalQuantity只能由目录编辑修改
// - AvailableQuantity只能通过Ledger调整(借阅-1,归还+1)
type Book struct {
	ID                string
	Title             string
	Author            string
	ISBN              string // 规范化后的ISBN(去掉分隔符)
	PublicationYear   int
	Description       string
	Cover             CoverImage
	TotalQuantity     int
	AvailableQuantity int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewBook 创建新图书(工厂方法),可借数量等于总量
func NewBook(title, author, isbn string, publicationYear int, description string, totalQuantity int) (*Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return nil, ErrInvalidTitle
	}
	if author == "" {
		return nil, ErrInvalidAuthor
	}
	if totalQuantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if publicationYear < 0 {
		return nil, ErrInvalidPublicationYear
	}

	now := time.Now()
	return &Book{
		ID:                uuid.NewString(),
		Title:             title,
		Author:            author,
		ISBN:              NormalizeISBN(isbn),
		PublicationYear:   publicationYear,
		Description:       description,
		TotalQuantity:     totalQuantity,
		AvailableQuantity: totalQuantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Borrowed 当前借出数量
func (b *Book) Borrowed() int {
	return b.TotalQuantity - b.AvailableQuantity
}

// CanAdjust 检查可借数量调整delta后是否仍满足库存规则
func (b *Book) CanAdjust(delta int) error {
	next := b.AvailableQuantity + delta
	if next < 0 {
		return ErrStockExhausted
	}
	if next > b.TotalQuantity {
		return ErrStockOverflow
	}
	return nil
}

// AdjustAvailable 调整可借数量(领域行为)
func (b *Book) AdjustAvailable(delta int) error {
	if err := b.CanAdjust(delta); err != nil {
		return err
	}
	b.AvailableQuantity += delta
	b.UpdatedAt = time.Now()
	return nil
}

// ChangeTotal 修改总量,借出中的数量保持不变:
// available = newTotal - (oldTotal - oldAvailable)
func (b *Book) ChangeTotal(newTotal int) error {
	if newTotal < 0 {
		return ErrInvalidQuantity
	}
	borrowed := b.Borrowed()
	if newTotal < borrowed {
		return ErrStockBelowBorrowed
	}
	b.TotalQuantity = newTotal
	b.AvailableQuantity = newTotal - borrowed
	b.UpdatedAt = time.Now()
	return nil
}

// UpdateInfo 更新描述信息,nil表示不修改
func (b *Book) UpdateInfo(title, author, description *string, publicationYear *int) error {
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return ErrInvalidTitle
		}
		b.Title = t
	}
	if author != nil {
		a := strings.TrimSpace(*author)
		if a == "" {
			return ErrInvalidAuthor
		}
		b.Author = a
	}
	if description != nil {
		b.Description = *description
	}
	if publicationYear != nil {
		if *publicationYear < 0 {
			return ErrInvalidPublicationYear
		}
		b.PublicationYear = *publicationYear
	}
	b.UpdatedAt = time.Now()
	return nil
}

// SetCover 替换封面,返回旧封面(调用方负责清理旧文件)
func (b *Book) SetCover(cover CoverImage) CoverImage {
	old := b.Cover
	b.Cover = cover
	b.UpdatedAt = time.Now()
	return old
}
