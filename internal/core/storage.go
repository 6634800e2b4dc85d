package core

import (
	"context"
	"fmt"
	"os"

	"neocore/internal/infra/persistence/memory"
	"neocore/internal/infra/persistence/postgres"
	"neocore/internal/infra/persistence/sqlite"
	"neocore/pkg/domain"
)

// StorageDriver identifies a concrete snapshot cache implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// SnapshotStore caches a catalog snapshot between runs so the source files
// need not be re-parsed on every start.
type SnapshotStore interface {
	Persist(ctx context.Context, snap domain.Snapshot) error
	Load(ctx context.Context) (domain.Snapshot, bool, error)
	Close() error
}

// OpenSnapshotStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	NEOCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	NEOCORE_SQLITE_PATH: path to sqlite file (default ./neocore.db)
//	NEOCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenSnapshotStore(ctx context.Context) (SnapshotStore, error) {
	driver := os.Getenv("NEOCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		path := os.Getenv("NEOCORE_SQLITE_PATH")
		return sqlite.NewStore(path)
	case StoragePostgres:
		dsn := os.Getenv("NEOCORE_POSTGRES_DSN")
		return postgres.NewStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
