package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/orm"
)

func TestOverdueQuery_FindOverdue(t *testing.T) {
	ctx := context.Background()
	db, err := orm.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "query_test.db"),
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = orm.Close(db) })

	books := orm.NewBookRepository(db)
	users := orm.NewUserRepository(db)
	records := orm.NewBorrowRepository(db)

	b, err := book.NewBook("Go语言圣经", "Donovan", "9780134190440", 2015, "", 3)
	require.NoError(t, err)
	require.NoError(t, books.Create(ctx, b))

	u := user.NewUser("reader_01", "hash")
	require.NoError(t, users.Create(ctx, u))

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	// 逾期10天
	late := borrow.NewRecord(u.ID, b.ID, now.AddDate(0, 0, -17), 7)
	require.NoError(t, records.Create(ctx, late))

	// 逾期但已归还
	returned := borrow.NewRecord(u.ID, b.ID, now.AddDate(0, 0, -30), 7)
	returnedAt := now.AddDate(0, 0, -20)
	returned.ReturnedAt = &returnedAt
	require.NoError(t, records.Create(ctx, returned))

	// 未到期
	onTime := borrow.NewRecord("u-other", b.ID, now.AddDate(0, 0, -2), 7)
	require.NoError(t, records.Create(ctx, onTime))

	q, err := NewOverdueQuery(db)
	require.NoError(t, err)

	loans, err := q.FindOverdue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, loans, 1)

	got := loans[0]
	assert.Equal(t, late.ID, got.RecordID)
	assert.Equal(t, "reader_01", got.Username)
	assert.Equal(t, "Go语言圣经", got.Title)
	assert.Equal(t, "9780134190440", got.ISBN)
	assert.True(t, late.DueDate.Equal(got.DueDate))
	assert.Equal(t, 10, got.DaysOverdue(now))
}

func TestOverdueQuery_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	db, err := orm.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "query_test.db"),
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = orm.Close(db) })

	records := orm.NewBorrowRepository(db)
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 3; i >= 1; i-- {
		// 用户与图书不存在时仍能列出(LEFT JOIN)
		rec := borrow.NewRecord("u", "b", now.AddDate(0, 0, -10*i), 7)
		require.NoError(t, records.Create(ctx, rec))
		ids = append(ids, rec.ID)
	}

	q, err := NewOverdueQuery(db)
	require.NoError(t, err)

	loans, err := q.FindOverdue(ctx, now, 2)
	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, ids[0], loans[0].RecordID)
	assert.Equal(t, ids[1], loans[1].RecordID)
	assert.Empty(t, loans[0].Title)
}

func TestGoquDialect(t *testing.T) {
	d, err := goquDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d)

	_, err = goquDialect("oracle")
	assert.Error(t, err)
}
