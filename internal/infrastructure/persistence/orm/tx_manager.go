package orm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

type txKey struct{}

// TxManager 事务管理器
// 事务DB通过context传递，fn内所有Repository调用都在同一事务中执行
type TxManager struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewTxManager 创建事务管理器
// lockTimeout>0时在事务开始时设置行锁等待上限(mysql/postgres)
func NewTxManager(db *gorm.DB, lockTimeout time.Duration) *TxManager {
	return &TxManager{db: db, lockTimeout: lockTimeout}
}

// Transaction 执行事务
// fn返回error时ROLLBACK，返回nil时COMMIT；ctx取消时事务回滚并释放行锁
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    b, err := bookRepo.LockByID(ctx, bookID)
//	    ...
//	    return recordRepo.Create(ctx, record)
//	})
//
// 死锁/锁等待超时返回apperrors.ErrLockConflict(可重试)
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.applyLockTimeout(tx); err != nil {
			return err
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil && isLockConflict(err) {
		return apperrors.WithCause(apperrors.ErrLockConflict, err)
	}
	return err
}

func (m *TxManager) applyLockTimeout(tx *gorm.DB) error {
	if m.lockTimeout <= 0 {
		return nil
	}
	switch tx.Dialector.Name() {
	case "postgres":
		// SET LOCAL只作用于当前事务
		return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())).Error
	case "mysql":
		secs := int(m.lockTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		return tx.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)).Error
	}
	return nil
}

// conn 从context获取事务DB，没有则使用默认DB
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
