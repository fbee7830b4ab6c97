package gateway

import (
	"context"

	"commerce-router/internal/events"
	"commerce-router/internal/service"
	"commerce-router/internal/storage"
)

type providerSnapshot struct {
	// enabled providers per type, already ordered by the store
	enabledByType map[service.Type][]service.Provider
	// every provider per type and code, disabled included, so a routing
	// decision that names a disabled provider still resolves its driver
	byCode map[service.Type]map[string]service.Provider
}

// Providers is the cached gateway over the provider table.
type Providers struct {
	cache *snapshotCache[*providerSnapshot]
}

// NewProviders builds the gateway and subscribes it to provider
// invalidations.
func NewProviders(store storage.Store, bus *events.Bus, ttl TTLSource) *Providers {
	g := &Providers{
		cache: newSnapshotCache("providers", ttl, func(ctx context.Context) (*providerSnapshot, error) {
			all, err := store.ListProviders(ctx)
			if err != nil {
				return nil, err
			}
			return buildProviderSnapshot(all), nil
		}),
	}
	if bus != nil {
		bus.Subscribe(events.DomainProviders, func(string) { g.cache.Invalidate() })
	}
	return g
}

func buildProviderSnapshot(all []service.Provider) *providerSnapshot {
	snap := &providerSnapshot{
		enabledByType: make(map[service.Type][]service.Provider),
		byCode:        make(map[service.Type]map[string]service.Provider),
	}
	for _, p := range all {
		if snap.byCode[p.ServiceType] == nil {
			snap.byCode[p.ServiceType] = make(map[string]service.Provider)
		}
		snap.byCode[p.ServiceType][p.Code] = p
		if p.Enabled {
			snap.enabledByType[p.ServiceType] = append(snap.enabledByType[p.ServiceType], p)
		}
	}
	return snap
}

func (g *Providers) FindEnabledByTypeOrdered(ctx context.Context, serviceType service.Type) ([]service.Provider, error) {
	snap, err := g.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap.enabledByType[serviceType], nil
}

func (g *Providers) FindByCode(ctx context.Context, serviceType service.Type, code string) (service.Provider, bool, error) {
	snap, err := g.cache.Get(ctx)
	if err != nil {
		return service.Provider{}, false, err
	}
	p, ok := snap.byCode[serviceType][code]
	return p, ok, nil
}

// Refresh marks the snapshot stale and reloads it immediately.
func (g *Providers) Refresh(ctx context.Context) error {
	g.cache.Invalidate()
	_, err := g.cache.Get(ctx)
	return err
}
