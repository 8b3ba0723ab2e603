package core

import (
	"path/filepath"
	"testing"

	"foundrycore/internal/infra/persistence/memory"
	"foundrycore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("FOUNDRYCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	t.Setenv("FOUNDRYCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("FOUNDRYCORE_SQLITE_PATH", path)
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ss, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer func() { _ = ss.Close() }()
	if ss.Path() != path {
		t.Fatalf("unexpected path %q", ss.Path())
	}
}

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	t.Setenv("FOUNDRYCORE_STORAGE_DRIVER", "")
	t.Setenv("FOUNDRYCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "default.db"))
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ss, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	_ = ss.Close()
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("FOUNDRYCORE_STORAGE_DRIVER", "abacus")
	if _, err := OpenPersistentStore(NewDefaultRulesEngine()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
