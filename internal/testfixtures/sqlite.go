package testfixtures

import (
	"context"
	"testing"

	"github.com/GregHandsley/powerbase-kiosk-sub002/internal/persistence/sqlite"
)

// NewMemoryPool opens a migrated in-memory SQLite database scoped to the
// test. The pool is capped at one connection because each in-memory
// connection would otherwise see its own database.
func NewMemoryPool(t *testing.T) *sqlite.ConnectionPool {
	t.Helper()

	pool, err := sqlite.NewConnectionPool(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	pool.DB().SetMaxOpenConns(1)

	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("failed to close in-memory database: %v", err)
		}
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate in-memory database: %v", err)
	}

	return pool
}
