package dto

import (
	"time"

	"github.com/xiebiao/library/internal/domain/book"
)

// CreateBookRequest 新书入账(multipart/form-data或JSON，封面字段名cover)
type CreateBookRequest struct {
	Title           string `form:"title" json:"title" binding:"required,max=200"`
	Author          string `form:"author" json:"author" binding:"required,max=100"`
	ISBN            string `form:"isbn" json:"isbn" binding:"required,max=20"`
	PublicationYear int    `form:"publication_year" json:"publication_year" binding:"gte=0,lte=9999"`
	Description     string `form:"description" json:"description" binding:"max=5000"`
	TotalQuantity   int    `form:"total_quantity" json:"total_quantity" binding:"gte=0,lte=100000"`
}

// UpdateBookRequest 编辑图书，未传的字段不修改
type UpdateBookRequest struct {
	Title           *string `form:"title" json:"title" binding:"omitempty,max=200"`
	Author          *string `form:"author" json:"author" binding:"omitempty,max=100"`
	ISBN            *string `form:"isbn" json:"isbn" binding:"omitempty,max=20"`
	PublicationYear *int    `form:"publication_year" json:"publication_year" binding:"omitempty,gte=0,lte=9999"`
	Description     *string `form:"description" json:"description" binding:"omitempty,max=5000"`
	TotalQuantity   *int    `form:"total_quantity" json:"total_quantity" binding:"omitempty,gte=0,lte=100000"`
}

// ListBooksRequest 列表查询参数
type ListBooksRequest struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search" binding:"max=100"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=updated_at_desc created_at_desc title_asc"`
}

// PageRequest 通用分页参数
type PageRequest struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// BookResponse 图书详情
type BookResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Author            string `json:"author"`
	ISBN              string `json:"isbn"`
	PublicationYear   int    `json:"publication_year"`
	Description       string `json:"description"`
	CoverURL          string `json:"cover_url"`
	TotalQuantity     int    `json:"total_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// BookListItem 列表项(不含description)
type BookListItem struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Author            string `json:"author"`
	ISBN              string `json:"isbn"`
	PublicationYear   int    `json:"publication_year"`
	CoverURL          string `json:"cover_url"`
	TotalQuantity     int    `json:"total_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	UpdatedAt         string `json:"updated_at"`
}

// StockLogResponse 库存变更日志
type StockLogResponse struct {
	ID              uint64 `json:"id"`
	ChangeType      string `json:"change_type"`
	Delta           int    `json:"delta"`
	BeforeAvailable int    `json:"before_available"`
	AfterAvailable  int    `json:"after_available"`
	TotalQuantity   int    `json:"total_quantity"`
	ReferenceID     string `json:"reference_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// NewBookResponse 领域实体 → HTTP DTO
func NewBookResponse(b *book.Book) *BookResponse {
	return &BookResponse{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		PublicationYear:   b.PublicationYear,
		Description:       b.Description,
		CoverURL:          b.Cover.URL,
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		CreatedAt:         FormatTime(b.CreatedAt),
		UpdatedAt:         FormatTime(b.UpdatedAt),
	}
}

// NewBookList 列表转换
func NewBookList(books []*book.Book) []BookListItem {
	items := make([]BookListItem, 0, len(books))
	for _, b := range books {
		items = append(items, BookListItem{
			ID:                b.ID,
			Title:             b.Title,
			Author:            b.Author,
			ISBN:              b.ISBN,
			PublicationYear:   b.PublicationYear,
			CoverURL:          b.Cover.URL,
			TotalQuantity:     b.TotalQuantity,
			AvailableQuantity: b.AvailableQuantity,
			UpdatedAt:         FormatTime(b.UpdatedAt),
		})
	}
	return items
}

// NewStockLogList 库存日志转换
func NewStockLogList(logs []*book.StockLog) []StockLogResponse {
	items := make([]StockLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, StockLogResponse{
			ID:              l.ID,
			ChangeType:      string(l.ChangeType),
			Delta:           l.Delta,
			BeforeAvailable: l.BeforeAvailable,
			AfterAvailable:  l.AfterAvailable,
			TotalQuantity:   l.TotalQuantity,
			ReferenceID:     l.ReferenceID,
			CreatedAt:       FormatTime(l.CreatedAt),
		})
	}
	return items
}

// FormatTime 统一输出RFC3339(UTC)
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
