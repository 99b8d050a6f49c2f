package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrISBNDuplicate ISBN已存在
	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeISBNDuplicate, "ISBN号已存在")

	// ErrInvalidISBN ISBN格式不正确
	ErrInvalidISBN = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN格式不正确")

	// ErrInvalidTitle 书名为空
	ErrInvalidTitle = apperrors.New(apperrors.ErrCodeInvalidParams, "书名不能为空")

	// ErrInvalidAuthor 作者为空
	ErrInvalidAuthor = apperrors.New(apperrors.ErrCodeInvalidParams, "作者不能为空")

	// ErrInvalidPublicationYear 出版年份不合法
	ErrInvalidPublicationYear = apperrors.New(apperrors.ErrCodeInvalidParams, "出版年份不合法")

	// ErrInvalidQuantity 总量为负数
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "总量不能为负数")

	// ErrStockExhausted 可借数量将小于0
	ErrStockExhausted = apperrors.New(apperrors.ErrCodeInsufficientStock, "可借库存不足")

	// ErrStockOverflow 可借数量将超过总量(记账不一致)
	ErrStockOverflow = apperrors.New(apperrors.ErrCodeInvalidState, "可借数量超过总量")

	// ErrStockBelowBorrowed 新总量小于已借出数量
	ErrStockBelowBorrowed = apperrors.New(apperrors.ErrCodeStockBelowBorrowed, "总量不能小于已借出数量")

	// ErrBookHasLoans 图书仍有未归还的借阅
	ErrBookHasLoans = apperrors.New(apperrors.ErrCodeBookHasLoans, "图书仍有未归还的借阅，不能删除")
)
