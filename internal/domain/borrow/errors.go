package borrow

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	// ErrRecordNotFound 借阅记录不存在
	ErrRecordNotFound = apperrors.New(apperrors.ErrCodeRecordNotFound, "借阅记录不存在")

	// ErrAlreadyReturned 借阅记录已归还
	ErrAlreadyReturned = apperrors.New(apperrors.ErrCodeAlreadyReturned, "借阅记录已归还")
)
