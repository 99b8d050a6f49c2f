package user

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var errTokenRevoked = apperrors.New(apperrors.ErrCodeInvalidToken, "Token已失效，请重新登录")
