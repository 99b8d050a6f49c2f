package borrow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord("u1", "b1", at, 7)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, at.AddDate(0, 0, 7), r.DueDate)
	assert.Equal(t, 7, r.LoanDays())
	assert.True(t, r.IsActive())
}

func TestRecord_MarkReturned(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord("u1", "b1", at, 7)

	require.NoError(t, r.MarkReturned(at.Add(time.Hour)))
	assert.False(t, r.IsActive())
	require.NotNil(t, r.ReturnedAt)

	assert.ErrorIs(t, r.MarkReturned(at.Add(2*time.Hour)), ErrAlreadyReturned)
	assert.Equal(t, at.Add(time.Hour), *r.ReturnedAt)
}

func TestRecord_IsOverdue(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord("u1", "b1", at, 7)

	assert.False(t, r.IsOverdue(at.AddDate(0, 0, 7)))
	assert.True(t, r.IsOverdue(at.AddDate(0, 0, 8)))

	require.NoError(t, r.MarkReturned(at.AddDate(0, 0, 9)))
	assert.False(t, r.IsOverdue(at.AddDate(0, 0, 10)))
}
