package lending

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 借阅流程错误
var (
	// ErrMissingUserID 缺少用户ID(未登录或Token中没有sub)
	ErrMissingUserID = apperrors.New(apperrors.ErrCodeInvalidParams, "缺少用户ID")

	// ErrInvalidQuantity 每条借阅记录对应一本书
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "每次只能借阅或归还1本")

	// ErrInvalidLoanDays 借期不合法
	ErrInvalidLoanDays = apperrors.New(apperrors.ErrCodeInvalidParams, "借阅天数不合法")

	// ErrAlreadyBorrowed 同一用户同一本书存在未归还记录
	ErrAlreadyBorrowed = apperrors.New(apperrors.ErrCodeAlreadyBorrowed, "您已借阅该书且尚未归还")

	// ErrInsufficientStock 可借数量为0
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "该书暂无可借库存")

	// ErrNoActiveBorrow 没有可归还的借阅记录
	ErrNoActiveBorrow = apperrors.New(apperrors.ErrCodeNoActiveBorrow, "没有该书的未归还借阅记录")

	// ErrInvalidState 归还后可借数量超过总量，说明账目已不一致
	ErrInvalidState = apperrors.New(apperrors.ErrCodeInvalidState, "库存状态异常")
)
