package gateway

import (
	"context"

	"commerce-router/internal/events"
	"commerce-router/internal/service"
	"commerce-router/internal/storage"
)

// RoutingRules is the cached gateway over the routing rule table.
type RoutingRules struct {
	cache *snapshotCache[map[service.Type][]service.RoutingRule]
}

// NewRoutingRules builds the gateway and subscribes it to rule
// invalidations.
func NewRoutingRules(store storage.Store, bus *events.Bus, ttl TTLSource) *RoutingRules {
	g := &RoutingRules{
		cache: newSnapshotCache("routing_rules", ttl, func(ctx context.Context) (map[service.Type][]service.RoutingRule, error) {
			all, err := store.ListRoutingRules(ctx)
			if err != nil {
				return nil, err
			}
			byType := make(map[service.Type][]service.RoutingRule)
			for _, r := range all {
				if r.Enabled {
					byType[r.ServiceType] = append(byType[r.ServiceType], r)
				}
			}
			return byType, nil
		}),
	}
	if bus != nil {
		bus.Subscribe(events.DomainRoutingRules, func(string) { g.cache.Invalidate() })
	}
	return g
}

func (g *RoutingRules) FindEnabledByTypeOrdered(ctx context.Context, serviceType service.Type) ([]service.RoutingRule, error) {
	snap, err := g.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return snap[serviceType], nil
}

// Refresh marks the snapshot stale and reloads it immediately.
func (g *RoutingRules) Refresh(ctx context.Context) error {
	g.cache.Invalidate()
	_, err := g.cache.Get(ctx)
	return err
}
