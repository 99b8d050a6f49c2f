package lending

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/orm"
	"github.com/xiebiao/library/internal/infrastructure/query"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

type fixture struct {
	db        *gorm.DB
	engine    *Engine
	books     book.Repository
	records   borrow.Repository
	users     user.Repository
	logs      book.LogRepository
	cache     *fakeCache
	publisher *fakePublisher
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := orm.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "lending_test.db"),
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = orm.Close(db) })

	f := &fixture{
		db:        db,
		books:     orm.NewBookRepository(db),
		records:   orm.NewBorrowRepository(db),
		users:     orm.NewUserRepository(db),
		logs:      orm.NewStockLogRepository(db),
		cache:     &fakeCache{},
		publisher: &fakePublisher{},
		clock:     time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}

	overdue, err := query.NewOverdueQuery(db)
	require.NoError(t, err)

	f.engine = NewEngine(
		orm.NewTxManager(db, 0),
		f.books,
		book.NewLedger(f.books, f.logs),
		f.records,
		f.users,
		overdue,
		f.cache,
		f.publisher,
		config.LendingConfig{
			DefaultLoanDays: 7,
			MaxLoanDays:     30,
			RetryAttempts:   3,
			RetryBaseDelay:  time.Millisecond,
		},
	)
	f.engine.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) addBook(t *testing.T, isbn string, total int) *book.Book {
	t.Helper()
	b, err := book.NewBook("Go语言圣经", "Donovan", isbn, 2015, "", total)
	require.NoError(t, err)
	require.NoError(t, f.books.Create(context.Background(), b))
	return b
}

func (f *fixture) addUser(t *testing.T, username string) *user.User {
	t.Helper()
	u := user.NewUser(username, "hash")
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) available(t *testing.T, bookID string) int {
	t.Helper()
	b, err := f.books.FindByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.AvailableQuantity
}

func TestEngine_BorrowReturnScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "9780134190440", 3)
	u := f.addUser(t, "reader_01")

	// 借阅: 3 → 2, 默认借期7天
	res, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Book.AvailableQuantity)
	assert.Equal(t, 3, res.Book.TotalQuantity)
	assert.True(t, res.Record.IsActive())
	assert.Equal(t, f.clock, res.Record.BorrowedAt)
	assert.Equal(t, f.clock.AddDate(0, 0, 7), res.Record.DueDate)
	assert.Equal(t, 2, f.available(t, b.ID))

	// 重复借阅
	_, err = f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrAlreadyBorrowed)
	assert.Equal(t, 2, f.available(t, b.ID))

	// 归还: 2 → 3
	f.clock = f.clock.Add(48 * time.Hour)
	ret, err := f.engine.Return(ctx, ReturnRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, ret.Book.AvailableQuantity)
	assert.Equal(t, res.Record.ID, ret.Record.ID)
	require.NotNil(t, ret.Record.ReturnedAt)
	assert.True(t, f.clock.Equal(*ret.Record.ReturnedAt))
	assert.False(t, ret.Overdue)

	// 再次归还
	_, err = f.engine.Return(ctx, ReturnRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrNoActiveBorrow)
	assert.Equal(t, 3, f.available(t, b.ID))

	// 归还后可以再借(新记录)
	again, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1, LoanDays: 14})
	require.NoError(t, err)
	assert.NotEqual(t, res.Record.ID, again.Record.ID)
	assert.Equal(t, 14, again.Record.LoanDays())

	// 副作用
	assert.Equal(t, []string{b.ID, b.ID, b.ID}, f.cache.invalidated)
	assert.Equal(t, []string{
		messaging.RoutingBookBorrowed,
		messaging.RoutingBookReturned,
		messaging.RoutingBookBorrowed,
	}, f.publisher.keys)

	// 库存日志
	logs, total, err := f.logs.ListByBook(ctx, b.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 3)
}

func TestEngine_Borrow_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "9780134190440", 1)
	u1 := f.addUser(t, "reader_01")
	u2 := f.addUser(t, "reader_02")

	_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u1.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u2.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsufficientStock))

	// 失败不留下借阅记录
	records, err := f.records.ListByUser(ctx, u2.ID, borrow.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, f.available(t, b.ID))
}

func TestEngine_Borrow_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "9780134190440", 1)
	u := f.addUser(t, "reader_01")

	_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: "missing", UserID: u.ID, Quantity: 1})
	assert.ErrorIs(t, err, book.ErrBookNotFound)

	_, err = f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: "ghost", Quantity: 1})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Equal(t, 1, f.available(t, b.ID))

	_, err = f.engine.Return(ctx, ReturnRequest{BookID: "missing", UserID: u.ID, Quantity: 1})
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestEngine_ValidationBeforeStoreAccess(t *testing.T) {
	// 没有任何依赖，校验失败时不会访问存储
	e := &Engine{cfg: config.LendingConfig{DefaultLoanDays: 7, MaxLoanDays: 30}}
	ctx := context.Background()

	tests := []struct {
		name string
		req  BorrowRequest
		want error
	}{
		{"empty user", BorrowRequest{BookID: "b", Quantity: 1}, ErrMissingUserID},
		{"zero qty", BorrowRequest{BookID: "b", UserID: "u", Quantity: 0}, ErrInvalidQuantity},
		{"multi qty", BorrowRequest{BookID: "b", UserID: "u", Quantity: 2}, ErrInvalidQuantity},
		{"negative days", BorrowRequest{BookID: "b", UserID: "u", Quantity: 1, LoanDays: -1}, ErrInvalidLoanDays},
		{"too many days", BorrowRequest{BookID: "b", UserID: "u", Quantity: 1, LoanDays: 31}, ErrInvalidLoanDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Borrow(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidParams))
		})
	}

	_, err := e.Return(ctx, ReturnRequest{BookID: "b", Quantity: 1})
	assert.ErrorIs(t, err, ErrMissingUserID)
	_, err = e.Return(ctx, ReturnRequest{BookID: "b", UserID: "u", Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = e.UserHistory(ctx, "", false)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestEngine_ConcurrentBorrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n, stock = 10, 3
	b := f.addBook(t, "9780134190440", stock)

	users := make([]*user.User, n)
	for i := range users {
		users[i] = f.addUser(t, fmt.Sprintf("reader_%02d", i))
	}

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(u *user.User) {
			defer wg.Done()
			_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case apperrors.HasCode(err, apperrors.ErrCodeInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(users[i])
	}
	wg.Wait()

	assert.Equal(t, stock, success)
	assert.Equal(t, n-stock, insufficient)
	assert.Equal(t, 0, f.available(t, b.ID))

	active, err := f.records.CountActiveByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(stock), active)
}

func TestEngine_ConcurrentBorrow_SameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n, stock = 8, 5
	b := f.addBook(t, "9780134190440", stock)
	u := f.addUser(t, "reader_01")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		success   int
		duplicate int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrAlreadyBorrowed):
				duplicate++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, duplicate)
	assert.Equal(t, stock-1, f.available(t, b.ID))

	active, err := f.records.CountActiveByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	records, err := f.records.ListByUser(ctx, u.ID, borrow.Filter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestEngine_Return_Overdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "9780134190440", 1)
	u := f.addUser(t, "reader_01")

	_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1, LoanDays: 3})
	require.NoError(t, err)

	f.clock = f.clock.AddDate(0, 0, 4)
	ret, err := f.engine.Return(ctx, ReturnRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, ret.Overdue)
	assert.False(t, ret.Record.IsActive())
	assert.Equal(t, 1, ret.Book.AvailableQuantity)
}

func TestEngine_CanceledContext(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "9780134190440", 2)
	u := f.addUser(t, "reader_01")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	require.Error(t, err)

	assert.Equal(t, 2, f.available(t, b.ID))
	records, err := f.records.ListByUser(context.Background(), u.ID, borrow.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, f.publisher.keys)
}

func TestEngine_PublishFailureDoesNotFailBorrow(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = fmt.Errorf("broker down")
	b := f.addBook(t, "9780134190440", 1)
	u := f.addUser(t, "reader_01")

	res, err := f.engine.Borrow(context.Background(), BorrowRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Book.AvailableQuantity)
}

func TestEngine_Return_InvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "9780134190440", 1)
	u := f.addUser(t, "reader_01")

	// 构造不一致的数据: 有未归还记录但可借数量已满
	require.NoError(t, f.records.Create(ctx, borrow.NewRecord(u.ID, b.ID, f.clock, 7)))

	_, err := f.engine.Return(ctx, ReturnRequest{BookID: b.ID, UserID: u.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidState)

	// 事务回滚，记录仍未归还
	active, err := f.records.CountActiveByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

func TestEngine_Histories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.addBook(t, "9780134190440", 2)
	b2 := f.addBook(t, "9787115275790", 2)
	u := f.addUser(t, "reader_01")

	_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b1.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Hour)
	_, err = f.engine.Borrow(ctx, BorrowRequest{BookID: b2.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Hour)
	_, err = f.engine.Return(ctx, ReturnRequest{BookID: b1.ID, UserID: u.ID, Quantity: 1})
	require.NoError(t, err)

	all, err := f.engine.UserHistory(ctx, u.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b2.ID, all[0].BookID)
	assert.Equal(t, b1.ID, all[1].BookID)

	active, err := f.engine.UserHistory(ctx, u.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b2.ID, active[0].BookID)

	history, err := f.engine.BookHistory(ctx, b1.ID, false)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsActive())

	_, err = f.engine.BookHistory(ctx, "missing", false)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestEngine_ListOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.addBook(t, "9780134190440", 2)
	u1 := f.addUser(t, "reader_01")
	u2 := f.addUser(t, "reader_02")

	_, err := f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u1.ID, Quantity: 1, LoanDays: 3})
	require.NoError(t, err)
	_, err = f.engine.Borrow(ctx, BorrowRequest{BookID: b.ID, UserID: u2.ID, Quantity: 1, LoanDays: 30})
	require.NoError(t, err)

	f.clock = f.clock.AddDate(0, 0, 5)
	loans, now, err := f.engine.ListOverdue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, f.clock, now)
	require.Len(t, loans, 1)
	assert.Equal(t, u1.ID, loans[0].UserID)
	assert.Equal(t, "reader_01", loans[0].Username)
	assert.Equal(t, 2, loans[0].DaysOverdue(now))
}
