// Package query 报表类只读查询
//
// 与仓储不同，这里直接用goqu拼SQL、sqlx扫描结果，复用gorm的连接池，
// 不经过模型映射，也不参与事务。
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // 注册方言
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // 注册方言
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // 注册方言
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/borrow"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	tableBorrowRecords = "borrow_records"
	tableBooks         = "books"
	tableUsers         = "users"
)

// overdueRow 扫描结果
type overdueRow struct {
	RecordID   string    `db:"record_id"`
	UserID     string    `db:"user_id"`
	Username   string    `db:"username"`
	BookID     string    `db:"book_id"`
	Title      string    `db:"title"`
	ISBN       string    `db:"isbn"`
	BorrowedAt time.Time `db:"borrowed_at"`
	DueDate    time.Time `db:"due_date"`
}

// OverdueQuery 逾期借阅查询
type OverdueQuery struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

// NewOverdueQuery 基于gorm的连接池创建查询
func NewOverdueQuery(gdb *gorm.DB) (*OverdueQuery, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	name := gdb.Dialector.Name()
	dialect, err := goquDialect(name)
	if err != nil {
		return nil, err
	}

	return &OverdueQuery{
		db:      sqlx.NewDb(sqlDB, name),
		dialect: goqu.Dialect(dialect),
	}, nil
}

func goquDialect(name string) (string, error) {
	switch name {
	case "mysql", "postgres":
		return name, nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("不支持的数据库方言: %q", name)
	}
}

// FindOverdue 查询逾期未还记录
//
//	SELECT r.id, r.user_id, u.username, r.book_id, b.title, b.isbn, r.borrowed_at, r.due_date
//	FROM borrow_records r
//	LEFT JOIN books b ON b.id = r.book_id
//	LEFT JOIN users u ON u.id = r.user_id
//	WHERE r.returned_at IS NULL AND r.due_date < ?
//	ORDER BY r.due_date ASC, r.id ASC
//	LIMIT ?
func (q *OverdueQuery) FindOverdue(ctx context.Context, now time.Time, limit int) ([]*borrow.OverdueLoan, error) {
	if limit <= 0 {
		limit = 100
	}

	stmt := q.dialect.
		From(goqu.T(tableBorrowRecords).As("r")).
		Select(
			goqu.I("r.id").As("record_id"),
			goqu.I("r.user_id").As("user_id"),
			goqu.COALESCE(goqu.I("u.username"), "").As("username"),
			goqu.I("r.book_id").As("book_id"),
			goqu.COALESCE(goqu.I("b.title"), "").As("title"),
			goqu.COALESCE(goqu.I("b.isbn"), "").As("isbn"),
			goqu.I("r.borrowed_at").As("borrowed_at"),
			goqu.I("r.due_date").As("due_date"),
		).
		LeftJoin(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.book_id")))).
		LeftJoin(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("r.user_id")))).
		Where(
			goqu.I("r.returned_at").IsNull(),
			goqu.I("r.due_date").Lt(now.UTC()),
		).
		Order(goqu.I("r.due_date").Asc(), goqu.I("r.id").Asc()).
		Limit(uint(limit)).
		Prepared(true)

	sqlQuery, args, err := stmt.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("构建逾期查询失败: %w", err)
	}

	var rows []overdueRow
	if err := q.db.SelectContext(ctx, &rows, sqlQuery, args...); err != nil {
		return nil, apperrors.Wrap(err, "查询逾期借阅失败")
	}

	loans := make([]*borrow.OverdueLoan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, &borrow.OverdueLoan{
			RecordID:   row.RecordID,
			UserID:     row.UserID,
			Username:   row.Username,
			BookID:     row.BookID,
			Title:      row.Title,
			ISBN:       row.ISBN,
			BorrowedAt: row.BorrowedAt.UTC(),
			DueDate:    row.DueDate.UTC(),
		})
	}
	return loans, nil
}
