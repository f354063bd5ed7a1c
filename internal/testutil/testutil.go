// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"os"
	"testing"

	"github.com/bluecheck/inquiries/internal/store"
)

// TestStore creates a temporary SQLite-backed store that is automatically cleaned up.
func TestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	dbFile, err := os.CreateTemp("", "bluecheck-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	s, err := store.OpenSQL(store.DriverSQLite, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
