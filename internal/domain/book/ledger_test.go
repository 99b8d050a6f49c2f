package book

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo 内存图书仓储(仅实现Ledger用到的方法)
type memRepo struct {
	Repository
	books map[string]*Book
}

func newMemRepo(books ...*Book) *memRepo {
	r := &memRepo{books: map[string]*Book{}}
	for _, b := range books {
		cp := *b
		r.books[b.ID] = &cp
	}
	return r
}

func (r *memRepo) Create(_ context.Context, b *Book) error {
	if _, ok := r.books[b.ID]; ok {
		return ErrISBNDuplicate
	}
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *memRepo) LockByID(_ context.Context, id string) (*Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) Update(_ context.Context, b *Book) error {
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *memRepo) UpdateAvailable(_ context.Context, id string, delta int) error {
	b, ok := r.books[id]
	if !ok {
		return ErrBookNotFound
	}
	if err := b.CanAdjust(delta); err != nil {
		return err
	}
	b.AvailableQuantity += delta
	return nil
}

type memLogs struct {
	logs []*StockLog
}

func (m *memLogs) Append(_ context.Context, log *StockLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *memLogs) ListByBook(_ context.Context, bookID string, _, _ int) ([]*StockLog, int64, error) {
	var out []*StockLog
	for _, l := range m.logs {
		if l.BookID == bookID {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func TestLedger_Adjust(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(&Book{ID: "b1", TotalQuantity: 3, AvailableQuantity: 3})
	logs := &memLogs{}
	ledger := NewLedger(repo, logs)

	b, err := ledger.Adjust(ctx, "b1", -1, StockChange{Type: ChangeBorrow, ReferenceID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, 2, b.AvailableQuantity)
	assert.Equal(t, 3, b.TotalQuantity)
	assert.Equal(t, 2, repo.books["b1"].AvailableQuantity)

	require.Len(t, logs.logs, 1)
	assert.Equal(t, &StockLog{
		BookID:          "b1",
		ChangeType:      ChangeBorrow,
		Delta:           -1,
		BeforeAvailable: 3,
		AfterAvailable:  2,
		TotalQuantity:   3,
		ReferenceID:     "r1",
	}, logs.logs[0])
}

func TestLedger_AdjustErrors(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(
		&Book{ID: "empty", TotalQuantity: 1, AvailableQuantity: 0},
		&Book{ID: "full", TotalQuantity: 1, AvailableQuantity: 1},
	)
	logs := &memLogs{}
	ledger := NewLedger(repo, logs)

	_, err := ledger.Adjust(ctx, "missing", -1, StockChange{Type: ChangeBorrow})
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = ledger.Adjust(ctx, "empty", -1, StockChange{Type: ChangeBorrow})
	assert.ErrorIs(t, err, ErrStockExhausted)

	_, err = ledger.Adjust(ctx, "full", 1, StockChange{Type: ChangeReturn})
	assert.ErrorIs(t, err, ErrStockOverflow)

	assert.Empty(t, logs.logs)
	assert.Equal(t, 0, repo.books["empty"].AvailableQuantity)
	assert.Equal(t, 1, repo.books["full"].AvailableQuantity)
}

func TestLedger_Open(t *testing.T) {
	repo := newMemRepo()
	logs := &memLogs{}
	ledger := NewLedger(repo, logs)

	b, err := NewBook("三体", "刘慈欣", "9787536692930", 2008, "", 4)
	require.NoError(t, err)
	require.NoError(t, ledger.Open(context.Background(), b))

	require.Len(t, logs.logs, 1)
	assert.Equal(t, ChangeInit, logs.logs[0].ChangeType)
	assert.Equal(t, 4, logs.logs[0].AfterAvailable)
}

func TestLedger_Resize(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo(&Book{ID: "b1", TotalQuantity: 5, AvailableQuantity: 3})
	logs := &memLogs{}
	ledger := NewLedger(repo, logs)

	b, err := repo.LockByID(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, ledger.Resize(ctx, b, 10))

	assert.Equal(t, 10, repo.books["b1"].TotalQuantity)
	assert.Equal(t, 8, repo.books["b1"].AvailableQuantity)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, ChangeRestock, logs.logs[0].ChangeType)
	assert.Equal(t, 5, logs.logs[0].Delta)

	b, err = repo.LockByID(ctx, "b1")
	require.NoError(t, err)
	assert.ErrorIs(t, ledger.Resize(ctx, b, 1), ErrStockBelowBorrowed)
	assert.Equal(t, 10, repo.books["b1"].TotalQuantity)
}
