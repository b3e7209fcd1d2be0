package sqlite

import (
	"context"
	"database/sql"
	"os"
	"testing"
)

// testDB opens a temporary database file with the schema applied. The file
// is removed when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// A temp file rather than :memory: so WAL mode and multiple connections work.
	f, err := os.CreateTemp("", "access-core-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() {
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	})

	db, err := Open(context.Background(), Config{Path: path, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
