package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want int
	}{
		{0, http.StatusOK},
		{ErrCodeInvalidParams, http.StatusBadRequest},
		{ErrCodeNoActiveBorrow, http.StatusBadRequest},
		{ErrCodeStockBelowBorrowed, http.StatusBadRequest},
		{ErrCodeInsufficientStock, http.StatusConflict},
		{ErrCodeAlreadyBorrowed, http.StatusConflict},
		{ErrCodeISBNDuplicate, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeBookNotFound, http.StatusNotFound},
		{ErrCodeRecordNotFound, http.StatusNotFound},
		{ErrCodeInvalidState, http.StatusInternalServerError},
		{ErrCodeLockConflict, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("code_%d", tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.code))
		})
	}
}

func TestGetAppError(t *testing.T) {
	t.Run("AppError原样返回", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", ErrUnauthorized)
		assert.Same(t, ErrUnauthorized, GetAppError(wrapped))
	})

	t.Run("普通错误包装为Internal", func(t *testing.T) {
		appErr := GetAppError(errors.New("boom"))
		assert.Equal(t, ErrCodeInternal, appErr.Code)
		assert.EqualError(t, appErr.Err, "boom")
	})
}

func TestWithCause(t *testing.T) {
	cause := errors.New("Error 1213: Deadlock found when trying to get lock")
	err := WithCause(ErrLockConflict, cause)

	assert.ErrorIs(t, err, ErrLockConflict)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, ErrCodeLockConflict))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeLockConflict))
}
