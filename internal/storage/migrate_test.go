package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	kv, err := NewSQLiteKV(db)
	if err != nil {
		t.Fatalf("new kv: %v", err)
	}

	if err := kv.Set(t.Context(), "roundtrip", []byte("ok")); err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := kv.Get(t.Context(), "roundtrip")
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if string(got) != "ok" {
		t.Fatalf("unexpected value after roundtrip: %q", got)
	}
}

func TestPostgresMigrationsEmbedded(t *testing.T) {
	for _, name := range []string{
		"migrations/postgres/0001_study_tasks.up.sql",
		"migrations/postgres/0001_study_tasks.down.sql",
	} {
		if _, err := migrationFiles.ReadFile(name); err != nil {
			t.Fatalf("expected embedded migration %s: %v", name, err)
		}
	}
}
