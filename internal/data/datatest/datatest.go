// Package datatest opens throwaway in-memory databases with the real schema applied.
package datatest

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"finance-hub/internal/data"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MigrationsDir returns the absolute path of the repository migrations folder.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// NewDB returns a migrated in-memory SQLite database that is closed when t ends.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite test database: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	files, err := filepath.Glob(filepath.Join(MigrationsDir(), "*.up.sql"))
	if err != nil {
		t.Fatalf("failed to list migrations: %v", err)
	}
	sort.Strings(files)
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("failed to read %s: %v", f, err)
		}
		for _, stmt := range strings.Split(string(raw), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := db.Exec(stmt); err != nil {
				t.Fatalf("migration %s failed: %v\n%s", filepath.Base(f), err, stmt)
			}
		}
	}
	return db
}

// NewStore returns a Store over a fresh migrated database.
func NewStore(t testing.TB) *data.Store {
	t.Helper()
	return data.NewStore(NewDB(t))
}
