// Package postgres implements the storage contract on PostgreSQL for
// multi-replica deployments.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"commerce-router/internal/service"
	"commerce-router/internal/storage"
)

type Adapter struct {
	db     *sql.DB
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	db, err := sql.Open("pgx", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
	}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Adapter) Health() error {
	return a.db.Ping()
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS service_providers (
			id BIGSERIAL PRIMARY KEY,
			service_type TEXT NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			priority INTEGER NOT NULL DEFAULT 100,
			driver_key TEXT NOT NULL,
			health_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE(service_type, code)
		)`,
		`CREATE TABLE IF NOT EXISTS service_routing_rules (
			id BIGSERIAL PRIMARY KEY,
			service_type TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			priority INTEGER NOT NULL DEFAULT 100,
			match_document TEXT NOT NULL DEFAULT '{}',
			provider_code TEXT NOT NULL,
			behavior_payload TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS service_provider_configs (
			id BIGSERIAL PRIMARY KEY,
			provider_code TEXT NOT NULL,
			environment TEXT NOT NULL DEFAULT 'production',
			version INTEGER NOT NULL DEFAULT 1,
			config_json TEXT NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS system_configs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_providers_type ON service_providers(service_type, enabled, priority)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_type ON service_routing_rules(service_type, enabled, priority)`,
		`CREATE INDEX IF NOT EXISTS idx_configs_code_env ON service_provider_configs(provider_code, environment, version)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (a *Adapter) ListProviders(ctx context.Context) ([]service.Provider, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, service_type, code, name, enabled, priority, driver_key, health_enabled
		FROM service_providers
		ORDER BY priority ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []service.Provider
	for rows.Next() {
		var p service.Provider
		var serviceType string
		if err := rows.Scan(&p.ID, &serviceType, &p.Code, &p.Name, &p.Enabled, &p.Priority, &p.DriverKey, &p.HealthEnabled); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		p.ServiceType = service.Type(serviceType)
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (a *Adapter) ListRoutingRules(ctx context.Context) ([]service.RoutingRule, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, service_type, enabled, priority, match_document, provider_code, behavior_payload
		FROM service_routing_rules
		ORDER BY priority ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing rules: %w", err)
	}
	defer rows.Close()

	var rules []service.RoutingRule
	for rows.Next() {
		var r service.RoutingRule
		var serviceType string
		var behavior sql.NullString
		if err := rows.Scan(&r.ID, &serviceType, &r.Enabled, &r.Priority, &r.MatchDocument, &r.ProviderCode, &behavior); err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		r.ServiceType = service.Type(serviceType)
		if behavior.Valid && behavior.String != "" {
			r.BehaviorPayload = []byte(behavior.String)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (a *Adapter) ListProviderConfigs(ctx context.Context) ([]storage.ProviderConfig, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT DISTINCT ON (provider_code, environment)
			id, provider_code, environment, version, config_json, active, created_at
		FROM service_provider_configs
		WHERE active
		ORDER BY provider_code, environment, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider configs: %w", err)
	}
	defer rows.Close()

	var configs []storage.ProviderConfig
	for rows.Next() {
		var c storage.ProviderConfig
		if err := rows.Scan(&c.ID, &c.ProviderCode, &c.Environment, &c.Version, &c.ConfigJSON, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan provider config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (a *Adapter) ListSystemConfigs(ctx context.Context) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT key, value FROM system_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list system configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan system config: %w", err)
		}
		configs[key] = value
	}
	return configs, rows.Err()
}

type Factory struct{}

func (f *Factory) GetType() string { return "postgres" }

func (f *Factory) Create(config storage.StorageConfig) (storage.Store, error) {
	generic, ok := config.(storage.GenericConfig)
	if !ok {
		return nil, fmt.Errorf("invalid config type for PostgreSQL storage")
	}

	pgConfig := &Config{}
	if v, ok := generic["host"].(string); ok {
		pgConfig.Host = v
	}
	if v, ok := generic["port"].(string); ok {
		pgConfig.Port = v
	}
	if v, ok := generic["database"].(string); ok {
		pgConfig.Database = v
	}
	if v, ok := generic["username"].(string); ok {
		pgConfig.Username = v
	}
	if v, ok := generic["password"].(string); ok {
		pgConfig.Password = v
	}
	if v, ok := generic["sslmode"].(string); ok {
		pgConfig.SSLMode = v
	}

	return NewAdapter(pgConfig)
}

func init() {
	storage.Register("postgres", &Factory{})
}
