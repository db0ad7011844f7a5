// Package testutil 测试辅助，仅供 _test.go 引用
package testutil

import (
	"fmt"
	"testing"

	"ai_course_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB 每个测试独立的内存库，已完成迁移；sqlite 默认不校验外键
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, "")
}

// NewTestDBWithForeignKeys 开启外键约束，行为与 MySQL / Postgres 一致
func NewTestDBWithForeignKeys(t *testing.T) *gorm.DB {
	t.Helper()
	return open(t, "&_foreign_keys=on")
}

func open(t *testing.T, params string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared%s", uuid.NewString(), params)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}
