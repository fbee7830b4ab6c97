package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-router/internal/common/errors"
	"commerce-router/internal/events"
	"commerce-router/internal/service"
	"commerce-router/internal/storage"
	"commerce-router/internal/storage/memory"
)

// countingStore wraps the memory adapter to count loads and inject
// failures.
type countingStore struct {
	*memory.Adapter

	mu            sync.Mutex
	providerLoads int
	failNext      bool
}

func (s *countingStore) ListProviders(ctx context.Context) ([]service.Provider, error) {
	s.mu.Lock()
	s.providerLoads++
	fail := s.failNext
	s.mu.Unlock()

	if fail {
		return nil, errors.ConnectionError("database unavailable", nil)
	}
	return s.Adapter.ListProviders(ctx)
}

func (s *countingStore) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providerLoads
}

func (s *countingStore) setFailNext(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = fail
}

func newCountingStore(providers ...service.Provider) *countingStore {
	adapter := memory.NewAdapter()
	adapter.SeedProviders(providers...)
	return &countingStore{Adapter: adapter}
}

func enabledProvider(code string, priority int) service.Provider {
	return service.Provider{
		ID:          code,
		ServiceType: service.TypeShipping,
		Code:        code,
		Enabled:     true,
		Priority:    priority,
		DriverKey:   "shipping." + code,
	}
}

func TestProviders_SnapshotServedWithinTTL(t *testing.T) {
	store := newCountingStore(enabledProvider("a", 10))
	g := NewProviders(store, nil, FixedTTL(time.Hour))

	for i := 0; i < 5; i++ {
		providers, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
		require.NoError(t, err)
		require.Len(t, providers, 1)
	}

	assert.Equal(t, 1, store.loads())
}

func TestProviders_InvalidationSignalForcesReloadBeforeTTL(t *testing.T) {
	store := newCountingStore(enabledProvider("a", 10))
	bus := events.NewBus()
	g := NewProviders(store, bus, FixedTTL(time.Hour))

	_, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)

	store.SeedProviders(enabledProvider("a", 10), enabledProvider("b", 20))

	// The write alone is invisible until a signal arrives.
	providers, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Len(t, providers, 1)

	bus.Publish(events.DomainProviders)

	providers, err = g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Len(t, providers, 2)
	assert.Equal(t, 2, store.loads())
}

func TestProviders_TTLExpiryReloads(t *testing.T) {
	store := newCountingStore(enabledProvider("a", 10))
	g := NewProviders(store, nil, FixedTTL(time.Minute))

	now := time.Now()
	g.cache.now = func() time.Time { return now }

	_, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Equal(t, 1, store.loads())

	now = now.Add(2 * time.Second)
	_, err = g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads())
}

func TestProviders_FailedRefreshKeepsServingPreviousSnapshot(t *testing.T) {
	store := newCountingStore(enabledProvider("a", 10))
	bus := events.NewBus()
	g := NewProviders(store, bus, FixedTTL(time.Hour))

	_, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)

	store.setFailNext(true)
	bus.Publish(events.DomainProviders)

	// Stale data keeps serving through the outage.
	providers, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Equal(t, "a", providers[0].Code)

	// The failed refresh did not restart the TTL: every read retries.
	loadsAfterFailure := store.loads()
	_, err = g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Equal(t, loadsAfterFailure+1, store.loads())

	// Recovery on the next successful load.
	store.setFailNext(false)
	store.SeedProviders(enabledProvider("b", 5))
	providers, err = g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Equal(t, "b", providers[0].Code)
}

func TestProviders_FirstLoadFailureIsAnError(t *testing.T) {
	store := newCountingStore()
	store.setFailNext(true)
	g := NewProviders(store, nil, FixedTTL(time.Hour))

	_, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.Error(t, err)
}

func TestProviders_FindByCodeIncludesDisabled(t *testing.T) {
	disabled := enabledProvider("off", 10)
	disabled.Enabled = false
	store := newCountingStore(disabled)
	g := NewProviders(store, nil, FixedTTL(time.Hour))

	p, found, err := g.FindByCode(context.Background(), service.TypeShipping, "off")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, p.Enabled)

	enabled, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestRoutingRules_OnlyEnabledRulesInSnapshot(t *testing.T) {
	adapter := memory.NewAdapter()
	adapter.SeedRoutingRules(
		service.RoutingRule{ID: "r1", ServiceType: service.TypeShipping, Enabled: true, Priority: 10, MatchDocument: "{}", ProviderCode: "a"},
		service.RoutingRule{ID: "r2", ServiceType: service.TypeShipping, Enabled: false, Priority: 5, MatchDocument: "{}", ProviderCode: "b"},
	)
	g := NewRoutingRules(adapter, nil, FixedTTL(time.Hour))

	rules, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "r1", rules[0].ID)
}

func TestProviderConfigs_Lookup(t *testing.T) {
	adapter := memory.NewAdapter()
	adapter.SeedProviderConfigs(
		storage.ProviderConfig{ID: "1", ProviderCode: "melhorenvio", Environment: "production", Version: 1, ConfigJSON: `{"token": "x"}`, Active: true},
	)
	g := NewProviderConfigs(adapter, nil, FixedTTL(time.Hour))

	raw, found, err := g.FindConfigJSON(context.Background(), "melhorenvio", "production")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"token": "x"}`, raw)

	_, found, err = g.FindConfigJSON(context.Background(), "melhorenvio", "sandbox")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProviders_RefreshReloadsImmediately(t *testing.T) {
	store := newCountingStore(enabledProvider("a", 10))
	g := NewProviders(store, nil, FixedTTL(time.Hour))

	_, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)

	store.SeedProviders(enabledProvider("a", 10), enabledProvider("b", 20))
	require.NoError(t, g.Refresh(context.Background()))

	providers, err := g.FindEnabledByTypeOrdered(context.Background(), service.TypeShipping)
	require.NoError(t, err)
	assert.Len(t, providers, 2)
}
