package quota

import (
	"fmt"
	"infragen/internal/models"
)

// NewStore instantiates a usage store based on the provided configuration.
// Supported backends:
//   - memory: in-process usage map (default; lost on restart)
//   - sqlite: local database file (survives restarts)
//   - postgres: shared database (multi-instance deployments)
func NewStore(config models.QuotaConfig) (Store, error) {
	switch config.Store {
	case models.QuotaStoreMemory, "":
		return NewMemoryStore(), nil
	case models.QuotaStoreSQLite:
		return NewSQLiteStore(config.Database.DSN)
	case models.QuotaStorePostgres:
		return NewPostgresStore(config.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported quota store: %s", config.Store)
	}
}
