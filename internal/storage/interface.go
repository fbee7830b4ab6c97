// Package storage defines the persistence contract for routing
// configuration: providers, routing rules, provider configuration documents
// and system-wide settings. Concrete adapters live in subpackages and
// register themselves with the package registry.
package storage

import (
	"context"
	"sort"
	"time"

	"commerce-router/internal/service"
)

// ProviderConfig is one stored configuration document for a provider in a
// deployment environment. Documents are versioned; writers insert a new
// version instead of updating in place, and readers see only the highest
// active version per (provider_code, environment).
type ProviderConfig struct {
	ID           string    `json:"id"`
	ProviderCode string    `json:"provider_code"`
	Environment  string    `json:"environment"`
	Version      int       `json:"version"`
	ConfigJSON   string    `json:"config_json"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the read contract the cached gateways load their snapshots from.
// List methods return providers and rules for every service type in one
// call; the gateways partition by type when building a snapshot.
type Store interface {
	Close() error
	Health() error

	// ListProviders returns all providers ordered by ascending priority,
	// then by insertion order.
	ListProviders(ctx context.Context) ([]service.Provider, error)

	// ListRoutingRules returns all routing rules ordered by ascending
	// priority, then by insertion order.
	ListRoutingRules(ctx context.Context) ([]service.RoutingRule, error)

	// ListProviderConfigs returns the highest active version of each
	// (provider_code, environment) configuration document.
	ListProviderConfigs(ctx context.Context) ([]ProviderConfig, error)

	// ListSystemConfigs returns all system configuration key/value pairs.
	ListSystemConfigs(ctx context.Context) (map[string]string, error)
}

// StorageConfig abstracts adapter-specific connection settings.
type StorageConfig interface {
	Validate() error
	GetType() string
	GetConnectionString() string
}

// StorageFactory creates a Store from its adapter-specific configuration.
type StorageFactory interface {
	Create(config StorageConfig) (Store, error)
	GetType() string
}

// GenericConfig is a simple map-based implementation of StorageConfig used
// by the top-level factory to pass settings through to adapters.
type GenericConfig map[string]interface{}

func (gc GenericConfig) Validate() error {
	return nil
}

func (gc GenericConfig) GetType() string {
	if t, ok := gc["type"].(string); ok {
		return t
	}
	return "unknown"
}

func (gc GenericConfig) GetConnectionString() string {
	if cs, ok := gc["connection_string"].(string); ok {
		return cs
	}
	return ""
}

// LatestActiveConfigs reduces raw configuration rows to the highest active
// version per (provider_code, environment). Shared by adapters whose query
// layer returns all rows.
func LatestActiveConfigs(rows []ProviderConfig) []ProviderConfig {
	latest := make(map[string]ProviderConfig)
	for _, row := range rows {
		if !row.Active {
			continue
		}
		key := row.ProviderCode + "/" + row.Environment
		if current, ok := latest[key]; !ok || row.Version > current.Version {
			latest[key] = row
		}
	}

	out := make([]ProviderConfig, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderCode != out[j].ProviderCode {
			return out[i].ProviderCode < out[j].ProviderCode
		}
		return out[i].Environment < out[j].Environment
	})
	return out
}
