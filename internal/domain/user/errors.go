package user

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = apperrors.New(apperrors.ErrCodeUserNotFound, "用户不存在")

	// ErrUsernameDuplicate 用户名已存在
	ErrUsernameDuplicate = apperrors.New(apperrors.ErrCodeUsernameDuplicate, "用户名已存在")

	// ErrInvalidUsername 用户名格式不正确
	ErrInvalidUsername = apperrors.New(apperrors.ErrCodeInvalidParams, "用户名需为6-32位字母、数字或下划线")
)
