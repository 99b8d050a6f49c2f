// Package pagination 分页计算
package pagination

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Meta 分页元数据
type Meta struct {
	Page       int   `json:"page"`
	Skip       int   `json:"skip"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// Normalize 规范化页码与每页数量（page<1取1，limit越界取默认值/上限）
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Offset 计算SQL偏移量
func Offset(page, limit int) int {
	page, limit = Normalize(page, limit)
	return (page - 1) * limit
}

// Calculate 根据页码、每页数量、总数计算分页元数据
// totalPages向上取整，总数为0时totalPages为0
func Calculate(page, limit int, totalItems int64) Meta {
	page, limit = Normalize(page, limit)

	totalPages := int(totalItems / int64(limit))
	if totalItems%int64(limit) != 0 {
		totalPages++
	}

	return Meta{
		Page:       page,
		Skip:       (page - 1) * limit,
		Limit:      limit,
		TotalPages: totalPages,
		TotalItems: totalItems,
	}
}
