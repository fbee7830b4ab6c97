package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-router/internal/service"
	"commerce-router/internal/storage"
	"commerce-router/internal/storage/memory"
)

func TestLatestActiveConfigs(t *testing.T) {
	rows := []storage.ProviderConfig{
		{ID: "1", ProviderCode: "melhorenvio", Environment: "production", Version: 1, ConfigJSON: `{"old": true}`, Active: true},
		{ID: "2", ProviderCode: "melhorenvio", Environment: "production", Version: 2, ConfigJSON: `{"new": true}`, Active: true},
		{ID: "3", ProviderCode: "melhorenvio", Environment: "sandbox", Version: 1, ConfigJSON: `{}`, Active: true},
		{ID: "4", ProviderCode: "mercadopago", Environment: "production", Version: 5, ConfigJSON: `{}`, Active: false},
	}

	latest := storage.LatestActiveConfigs(rows)

	require.Len(t, latest, 2)
	assert.Equal(t, "melhorenvio", latest[0].ProviderCode)
	assert.Equal(t, "production", latest[0].Environment)
	assert.Equal(t, 2, latest[0].Version)
	assert.Equal(t, "sandbox", latest[1].Environment)
}

func TestMemoryAdapter_OrdersByPriorityThenInsertion(t *testing.T) {
	store := memory.NewAdapter()
	store.SeedProviders(
		service.Provider{ID: "1", ServiceType: service.TypeShipping, Code: "b", Priority: 10, Enabled: true},
		service.Provider{ID: "2", ServiceType: service.TypeShipping, Code: "a", Priority: 10, Enabled: true},
		service.Provider{ID: "3", ServiceType: service.TypeShipping, Code: "c", Priority: 5, Enabled: true},
	)

	providers, err := store.ListProviders(context.Background())

	require.NoError(t, err)
	require.Len(t, providers, 3)
	assert.Equal(t, "c", providers[0].Code)
	assert.Equal(t, "b", providers[1].Code)
	assert.Equal(t, "a", providers[2].Code)
}

func TestMemoryAdapter_SystemConfigs(t *testing.T) {
	store := memory.NewAdapter()
	store.SetSystemConfig("CACHE_TTL_SECONDS", "60")

	configs, err := store.ListSystemConfigs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "60", configs["CACHE_TTL_SECONDS"])
}

func TestRegistry_MemoryFactoryIsRegistered(t *testing.T) {
	assert.True(t, storage.DefaultRegistry.IsRegistered("memory"))

	store, err := storage.Create("memory", storage.GenericConfig{})
	require.NoError(t, err)
	assert.NoError(t, store.Health())
}
