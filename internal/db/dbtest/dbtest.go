// Package dbtest opens isolated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"vapex/internal/db"
)

var counter atomic.Int64

// Open returns a freshly migrated in-memory sqlite database private to t.
// It is closed when the test finishes.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:vapex_test_%d?mode=memory&cache=shared", counter.Add(1))
	database, err := db.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}
