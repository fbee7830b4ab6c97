package storage

import (
	"fmt"

	"commerce-router/internal/common/errors"
	"commerce-router/internal/config"
)

// NewStorage creates a storage adapter based on configuration. The adapter
// subpackages must be imported for their side-effect registration.
func NewStorage(cfg *config.Config) (Store, error) {
	var storageConfig StorageConfig

	switch cfg.DatabaseType {
	case "sqlite":
		storageConfig = GenericConfig{
			"path": cfg.DatabasePath,
		}

	case "postgres", "postgresql":
		storageConfig = GenericConfig{
			"host":     cfg.PostgresHost,
			"port":     cfg.PostgresPort,
			"database": cfg.PostgresDB,
			"username": cfg.PostgresUser,
			"password": cfg.PostgresPassword,
			"sslmode":  cfg.PostgresSSLMode,
		}
		return Create("postgres", storageConfig)

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}

	return Create(cfg.DatabaseType, storageConfig)
}
