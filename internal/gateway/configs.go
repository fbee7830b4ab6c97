package gateway

import (
	"context"

	"commerce-router/internal/events"
	"commerce-router/internal/storage"
)

// ProviderConfigs is the cached gateway over provider configuration
// documents, keyed by provider code and environment.
type ProviderConfigs struct {
	cache *snapshotCache[map[string]string]
}

// NewProviderConfigs builds the gateway and subscribes it to
// provider-config invalidations.
func NewProviderConfigs(store storage.Store, bus *events.Bus, ttl TTLSource) *ProviderConfigs {
	g := &ProviderConfigs{
		cache: newSnapshotCache("provider_configs", ttl, func(ctx context.Context) (map[string]string, error) {
			rows, err := store.ListProviderConfigs(ctx)
			if err != nil {
				return nil, err
			}
			byKey := make(map[string]string, len(rows))
			for _, row := range rows {
				byKey[row.ProviderCode+"/"+row.Environment] = row.ConfigJSON
			}
			return byKey, nil
		}),
	}
	if bus != nil {
		bus.Subscribe(events.DomainProviderConfig, func(string) { g.cache.Invalidate() })
	}
	return g
}

func (g *ProviderConfigs) FindConfigJSON(ctx context.Context, providerCode, environment string) (string, bool, error) {
	snap, err := g.cache.Get(ctx)
	if err != nil {
		return "", false, err
	}
	raw, ok := snap[providerCode+"/"+environment]
	return raw, ok, nil
}

// Refresh marks the snapshot stale and reloads it immediately.
func (g *ProviderConfigs) Refresh(ctx context.Context) error {
	g.cache.Invalidate()
	_, err := g.cache.Get(ctx)
	return err
}
