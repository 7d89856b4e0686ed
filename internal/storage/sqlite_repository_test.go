package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func setupKV(t *testing.T) *SQLiteKV {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "studyd-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	kv, err := NewSQLiteKV(db)
	if err != nil {
		t.Fatalf("new kv: %v", err)
	}
	return kv
}

func TestKVSetGetDelete(t *testing.T) {
	kv := setupKV(t)
	ctx := context.Background()

	if _, err := kv.Get(ctx, "study-planner-storage"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before first write, got: %v", err)
	}

	if err := kv.Set(ctx, "study-planner-storage", []byte(`{"state":{"tasks":[]},"version":0}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := kv.Get(ctx, "study-planner-storage")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"state":{"tasks":[]},"version":0}` {
		t.Fatalf("unexpected value: %s", got)
	}

	if err := kv.Set(ctx, "study-planner-storage", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = kv.Get(ctx, "study-planner-storage")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Fatalf("expected overwritten value, got: %s", got)
	}

	if err := kv.Delete(ctx, "study-planner-storage"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kv.Get(ctx, "study-planner-storage"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got: %v", err)
	}
	if err := kv.Delete(ctx, "study-planner-storage"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound deleting missing key, got: %v", err)
	}
}

func TestOpenSQLiteAppliesMigrations(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer kv.Close()

	if err := kv.Set(t.Context(), "k", []byte("v")); err != nil {
		t.Fatalf("set after open: %v", err)
	}
}
