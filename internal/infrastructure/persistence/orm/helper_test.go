package orm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// newTestDB 每个测试一个独立的SQLite文件
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "library_test.db"),
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}
