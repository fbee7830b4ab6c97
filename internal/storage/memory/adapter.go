// Package memory provides an in-memory Store used by tests and by
// deployments that seed configuration at startup instead of a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"commerce-router/internal/service"
	"commerce-router/internal/storage"
)

type Adapter struct {
	mu            sync.RWMutex
	providers     []service.Provider
	rules         []service.RoutingRule
	configs       []storage.ProviderConfig
	systemConfigs map[string]string
}

func NewAdapter() *Adapter {
	return &Adapter{
		systemConfigs: make(map[string]string),
	}
}

func (a *Adapter) Close() error  { return nil }
func (a *Adapter) Health() error { return nil }

// SeedProviders replaces the provider set.
func (a *Adapter) SeedProviders(providers ...service.Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers = append([]service.Provider(nil), providers...)
}

// SeedRoutingRules replaces the routing rule set.
func (a *Adapter) SeedRoutingRules(rules ...service.RoutingRule) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rules = append([]service.RoutingRule(nil), rules...)
}

// SeedProviderConfigs replaces the provider configuration documents.
func (a *Adapter) SeedProviderConfigs(configs ...storage.ProviderConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configs = append([]storage.ProviderConfig(nil), configs...)
}

// SetSystemConfig sets one system configuration value.
func (a *Adapter) SetSystemConfig(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.systemConfigs[key] = value
}

func (a *Adapter) ListProviders(_ context.Context) ([]service.Provider, error) {
	a.mu.RLock()
	out := append([]service.Provider(nil), a.providers...)
	a.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (a *Adapter) ListRoutingRules(_ context.Context) ([]service.RoutingRule, error) {
	a.mu.RLock()
	out := append([]service.RoutingRule(nil), a.rules...)
	a.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (a *Adapter) ListProviderConfigs(_ context.Context) ([]storage.ProviderConfig, error) {
	a.mu.RLock()
	rows := append([]storage.ProviderConfig(nil), a.configs...)
	a.mu.RUnlock()

	return storage.LatestActiveConfigs(rows), nil
}

func (a *Adapter) ListSystemConfigs(_ context.Context) (map[string]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]string, len(a.systemConfigs))
	for k, v := range a.systemConfigs {
		out[k] = v
	}
	return out, nil
}

type Factory struct{}

func (f *Factory) GetType() string { return "memory" }

func (f *Factory) Create(_ storage.StorageConfig) (storage.Store, error) {
	return NewAdapter(), nil
}

func init() {
	storage.Register("memory", &Factory{})
}
