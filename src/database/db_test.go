package database

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestOpenSQLiteCreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "keys.db")

	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenSQLiteSchemaApplied(t *testing.T) {
	db := NewMemorySQLite(t)

	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='access_keys'").Scan(&name)
	if err != nil {
		t.Fatalf("table access_keys not found: %v", err)
	}
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "keys.db")

	for i := 0; i < 2; i++ {
		db, err := OpenSQLite(dbPath)
		if err != nil {
			t.Fatalf("OpenSQLite attempt %d failed: %v", i+1, err)
		}
		_ = db.Close()
	}
}

func TestOpenSQLiteRejectsUnknownStatus(t *testing.T) {
	db := NewMemorySQLite(t)

	_, err := db.Exec(`INSERT INTO access_keys (key_id, user_id, created_at, expires_at, status)
		VALUES ('k1', 'u1', 1, 2, 'deleted')`)
	if err == nil {
		t.Fatal("expected status check constraint to reject unknown status")
	}
}

func TestHealthWithoutPool(t *testing.T) {
	db := NewDatabaseFromPool(nil)
	if err := db.Health(t.Context()); err == nil {
		t.Fatal("expected error for uninitialized pool")
	}
}

// postgresTableColumns returns the columns declared by CREATE TABLE access_keys
func postgresTableColumns(t *testing.T) map[string]bool {
	t.Helper()
	start := strings.Index(postgresSchema, "CREATE TABLE IF NOT EXISTS access_keys")
	if start < 0 {
		t.Fatal("postgres schema has no access_keys table")
	}
	body := postgresSchema[start:]
	body = body[:strings.Index(body, ");")]

	columns := make(map[string]bool)
	line := regexp.MustCompile(`(?m)^\s+([a-z_]+)\s+[A-Z]`)
	for _, m := range line.FindAllStringSubmatch(body, -1) {
		columns[m[1]] = true
	}
	return columns
}

func TestPostgresSchemaMatchesSQLite(t *testing.T) {
	db := NewMemorySQLite(t)

	var sqliteColumns []string
	if err := db.Select(&sqliteColumns, "SELECT name FROM pragma_table_info('access_keys')"); err != nil {
		t.Fatalf("read sqlite columns: %v", err)
	}
	if len(sqliteColumns) == 0 {
		t.Fatal("no sqlite columns found")
	}

	pgColumns := postgresTableColumns(t)
	for _, col := range sqliteColumns {
		if !pgColumns[col] {
			t.Errorf("column %s is missing from the postgres CREATE TABLE", col)
		}
	}
	if !pgColumns["created_by"] {
		t.Error("created_by must be part of the base postgres table")
	}
}
