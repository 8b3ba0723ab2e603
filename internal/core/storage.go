package core

import (
	"fmt"
	"os"

	"foundrycore/internal/infra/persistence/memory"
	"foundrycore/internal/infra/persistence/postgres"
	"foundrycore/internal/infra/persistence/sqlite"
	"foundrycore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// SnapshotStore is the store surface required by the snapshot archiver. Every
// backend satisfies it; the durable ones persist the imported state on the
// next committed transaction.
type SnapshotStore interface {
	PersistentStore
	ExportState() memory.Snapshot
	ImportState(snapshot memory.Snapshot)
}

func newMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// NewSQLiteStore constructs a SQLite-backed persistent store using the
// provided file path (may be empty for the default) and rules engine.
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}

// NewPostgresStore constructs a Postgres-backed store from the provided DSN.
func NewPostgresStore(dsn string, engine *domain.RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	FOUNDRYCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	FOUNDRYCORE_SQLITE_PATH: path to sqlite file (default ./foundrycore.db)
//	FOUNDRYCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("FOUNDRYCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return newMemoryStore(engine), nil
	case StorageSQLite:
		return NewSQLiteStore(os.Getenv("FOUNDRYCORE_SQLITE_PATH"), engine)
	case StoragePostgres:
		return NewPostgresStore(os.Getenv("FOUNDRYCORE_POSTGRES_DSN"), engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
