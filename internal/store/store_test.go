package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigma.db")

	// Reopening an existing file must not reapply or fail migrations.
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i+1, err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	for _, table := range []string{"models", "runs", "run_values"} {
		if got := queryStrings(t, s.db, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table); len(got) != 1 {
			t.Errorf("table %s missing", table)
		}
	}

	if _, err := Open(filepath.Join(dir, "missing", "dir", "sigma.db")); err == nil {
		t.Error("open under a missing directory succeeded")
	}
	if err := (&Store{}).Close(); err != nil {
		t.Errorf("closing an unopened store: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	// synchronous NORMAL = 1, foreign_keys ON = 1
	for name, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	} {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestSchema_RunsColumns(t *testing.T) {
	s := createTestStore(t)

	cols := getTableColumns(t, s.db, "runs")
	for _, want := range []string{"id", "model_hash", "seq", "solver", "status", "objective", "message", "elapsed_ms"} {
		if !slices.Contains(cols, want) {
			t.Errorf("runs table missing column %q, have %v", want, cols)
		}
	}
}

func TestConstraint_RunRequiresModel(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO runs (id, model_hash, seq, solver, status) VALUES ('r1', 'missing', 1, 'cbc', 'optimal')`)
	if err == nil {
		t.Error("expected foreign key violation for run without model")
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if indexes := getTableIndexes(t, s.db, "runs"); !slices.Contains(indexes, "idx_runs_model_seq") {
		t.Errorf("expected idx_runs_model_seq after migration, got indexes: %v", indexes)
	}
}

func TestMigration_UpgradeFromV1AddsElapsed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// runs as the first release created it
	for _, stmt := range []string{
		`CREATE TABLE models (hash TEXT PRIMARY KEY, name TEXT NOT NULL, sense TEXT NOT NULL,
			variable_count INTEGER NOT NULL, constraint_count INTEGER NOT NULL, body TEXT NOT NULL)`,
		`CREATE TABLE runs (id TEXT PRIMARY KEY, model_hash TEXT NOT NULL REFERENCES models(hash),
			seq INTEGER NOT NULL UNIQUE, solver TEXT NOT NULL, status TEXT NOT NULL,
			objective REAL, message TEXT NOT NULL DEFAULT '')`,
		`INSERT INTO models VALUES ('h', 'old', 'minimize', 0, 0, '{}')`,
		`INSERT INTO runs (id, model_hash, seq, solver, status) VALUES ('r1', 'h', 1, 'cbc', 'infeasible')`,
		`PRAGMA user_version = 1`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if cols := getTableColumns(t, s.db, "runs"); !slices.Contains(cols, "elapsed_ms") {
		t.Errorf("expected elapsed_ms after migration, have %v", cols)
	}
	runs, err := s.ListRuns(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Elapsed != 0 {
		t.Errorf("old run = %+v, want one run with zero elapsed", runs)
	}
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM pragma_table_info(?)", table)
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
}

// queryStrings runs a single-column query and collects its rows.
func queryStrings(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()

	rows, err := db.Query(query, args...)
	if err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}
