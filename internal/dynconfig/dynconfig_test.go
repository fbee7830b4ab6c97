package dynconfig

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"commerce-router/internal/events"
	"commerce-router/internal/storage/memory"
)

func TestGetString_PrefersStoredValueOverDefault(t *testing.T) {
	store := memory.NewAdapter()
	store.SetSystemConfig("GREETING", "hello")
	svc := New(store, nil)

	assert.Equal(t, "hello", svc.GetString(context.Background(), "GREETING", "fallback"))
	assert.Equal(t, "fallback", svc.GetString(context.Background(), "MISSING", "fallback"))
}

func TestGetString_EnvironmentFallback(t *testing.T) {
	t.Setenv("DYNCONFIG_TEST_KEY", "from-env")
	svc := New(memory.NewAdapter(), nil)

	assert.Equal(t, "from-env", svc.GetString(context.Background(), "DYNCONFIG_TEST_KEY", "fallback"))
}

func TestGetLong_UnparsableFallsBack(t *testing.T) {
	store := memory.NewAdapter()
	store.SetSystemConfig("CACHE_TTL_SECONDS", "not-a-number")
	svc := New(store, nil)

	assert.Equal(t, int64(300), svc.GetLong(context.Background(), "CACHE_TTL_SECONDS", 300))
}

func TestGetBool(t *testing.T) {
	store := memory.NewAdapter()
	store.SetSystemConfig("FEATURE_ON", "true")
	store.SetSystemConfig("FEATURE_BAD", "maybe")
	svc := New(store, nil)

	assert.True(t, svc.GetBool(context.Background(), "FEATURE_ON", false))
	assert.False(t, svc.GetBool(context.Background(), "FEATURE_BAD", false))
	assert.True(t, svc.GetBool(context.Background(), "FEATURE_MISSING", true))
}

func TestGetDecimal(t *testing.T) {
	store := memory.NewAdapter()
	store.SetSystemConfig(KeyShippingPersuasiveGap, "75.50")
	svc := New(store, nil)

	got := svc.GetDecimal(context.Background(), KeyShippingPersuasiveGap, decimal.NewFromInt(50))
	assert.True(t, got.Equal(decimal.RequireFromString("75.50")))
}

func TestCacheTTL_DefaultsWhenUnsetOrInvalid(t *testing.T) {
	svc := New(memory.NewAdapter(), nil)
	assert.Equal(t, int64(300), int64(svc.CacheTTL(context.Background()).Seconds()))

	store := memory.NewAdapter()
	store.SetSystemConfig(KeyCacheTTLSeconds, "-5")
	svc = New(store, nil)
	assert.Equal(t, int64(300), int64(svc.CacheTTL(context.Background()).Seconds()))
}

func TestInvalidationFlushesCache(t *testing.T) {
	store := memory.NewAdapter()
	store.SetSystemConfig("KNOB", "before")
	bus := events.NewBus()
	svc := New(store, bus)

	assert.Equal(t, "before", svc.GetString(context.Background(), "KNOB", ""))

	// Without an invalidation the cached value survives the write.
	store.SetSystemConfig("KNOB", "after")
	assert.Equal(t, "before", svc.GetString(context.Background(), "KNOB", ""))

	bus.Publish(events.DomainSystemConfig)
	assert.Equal(t, "after", svc.GetString(context.Background(), "KNOB", ""))
}
