package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	t.Setenv("SEQUENCESCAPE_STORAGE_DRIVER", "")
	t.Setenv("SEQUENCESCAPE_SQLITE_PATH", filepath.Join(t.TempDir(), "default.db"))

	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	sqliteStore, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("store = %T, want *sqlite.Store", store)
	}
	defer func() { _ = sqliteStore.Close() }()
	if _, err := sqliteStore.RunInTransaction(context.Background(), func(tx Transaction) error { return nil }); err != nil {
		t.Fatalf("empty transaction: %v", err)
	}
}

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("SEQUENCESCAPE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("store = %T, want *memory.Store", store)
	}
}

func TestOpenPersistentStoreCustomSQLitePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	t.Setenv("SEQUENCESCAPE_STORAGE_DRIVER", "sqlite")
	t.Setenv("SEQUENCESCAPE_SQLITE_PATH", path)

	store, err := OpenPersistentStore(NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	sqliteStore, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("store = %T, want *sqlite.Store", store)
	}
	defer func() { _ = sqliteStore.Close() }()
	if sqliteStore.Path() != path {
		t.Fatalf("path = %s, want %s", sqliteStore.Path(), path)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("SEQUENCESCAPE_STORAGE_DRIVER", "gibberish")
	if _, err := OpenPersistentStore(NewRulesEngine()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
