package core

import (
	"fmt"
	"os"

	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/internal/infra/persistence/postgres"
	"github.com/radome/sequencescape/internal/infra/persistence/sqlite"
	"github.com/radome/sequencescape/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	SEQUENCESCAPE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	SEQUENCESCAPE_SQLITE_PATH: path to sqlite file (default ./sequencescape.db)
//	SEQUENCESCAPE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("SEQUENCESCAPE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		path := os.Getenv("SEQUENCESCAPE_SQLITE_PATH")
		return sqlite.NewStore(path, engine)
	case StoragePostgres:
		dsn := os.Getenv("SEQUENCESCAPE_POSTGRES_DSN")
		return postgres.NewStore(dsn, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
