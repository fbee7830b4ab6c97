package shipping

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-router/internal/dynconfig"
	"commerce-router/internal/gateway"
	"commerce-router/internal/service"
	"commerce-router/internal/storage/memory"
)

type stubCarrier struct {
	payload map[string]interface{}
}

func (d *stubCarrier) Key() string               { return "shipping.stub" }
func (d *stubCarrier) ServiceType() service.Type { return service.TypeShipping }

func (d *stubCarrier) Execute(_ context.Context, _, _ map[string]interface{}) map[string]interface{} {
	return d.payload
}

func newQuoteService(t *testing.T, store *memory.Adapter, carrier service.Driver) *Service {
	t.Helper()

	ttl := gateway.FixedTTL(time.Hour)
	providers := gateway.NewProviders(store, nil, ttl)
	rules := gateway.NewRoutingRules(store, nil, ttl)
	configs := gateway.NewProviderConfigs(store, nil, ttl)

	engine := service.NewEngine(providers, rules)
	orch := service.NewOrchestrator(engine, providers, configs, service.NewDriverRegistry(carrier), nil)

	return NewService(orch, NewRulesEngine(dynconfig.New(store, nil)), "production")
}

func TestQuote_MapsCarrierPayload(t *testing.T) {
	store := memory.NewAdapter()
	store.SeedProviders(service.Provider{
		ID: "1", ServiceType: service.TypeShipping, Code: "stub",
		Enabled: true, Priority: 10, DriverKey: "shipping.stub",
	})
	svc := newQuoteService(t, store, &stubCarrier{payload: map[string]interface{}{
		"provider":       "Stub Carrier",
		"cost":           21.40,
		"eligible":       true,
		"free_shipping":  false,
		"threshold":      199.0,
		"estimated_days": 4.0,
	}})

	result, err := svc.Quote(context.Background(), QuoteRequest{
		Cep:      "01310-100",
		Subtotal: decimal.NewFromInt(80),
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Stub Carrier", result.ProviderName)
	assert.Equal(t, "21.40", result.Cost.StringFixed(2))
	assert.True(t, result.Eligible)
	assert.Equal(t, 4, result.EstimatedDays)
	require.NotNil(t, result.Threshold)
	assert.Equal(t, "199.00", result.Threshold.StringFixed(2))
}

func TestQuote_AppliesPromotionalRulesOnTop(t *testing.T) {
	store := memory.NewAdapter()
	store.SeedProviders(service.Provider{
		ID: "1", ServiceType: service.TypeShipping, Code: "stub",
		Enabled: true, Priority: 10, DriverKey: "shipping.stub",
	})
	store.SetSystemConfig(dynconfig.KeyShippingRules, `[{
		"name": "Free over 100",
		"priority": 10,
		"active": true,
		"trigger": {"cart_total_min": "100"},
		"benefit": {"type": "FREE_SHIPPING"}
	}]`)
	svc := newQuoteService(t, store, &stubCarrier{payload: map[string]interface{}{
		"provider": "Stub Carrier",
		"cost":     21.40,
		"eligible": true,
	}})

	result, err := svc.Quote(context.Background(), QuoteRequest{
		Subtotal: decimal.NewFromInt(150),
	})

	require.NoError(t, err)
	assert.True(t, result.FreeShipping)
	assert.True(t, result.Cost.IsZero())
	assert.Equal(t, "Free over 100", result.AppliedRuleName)
	require.NotNil(t, result.OriginalCost)
	assert.Equal(t, "21.40", result.OriginalCost.StringFixed(2))
}

func TestQuote_CarrierErrorSurfacesAsUnsuccessfulResult(t *testing.T) {
	store := memory.NewAdapter()
	store.SeedProviders(service.Provider{
		ID: "1", ServiceType: service.TypeShipping, Code: "stub",
		Enabled: true, Priority: 10, DriverKey: "shipping.stub",
	})
	svc := newQuoteService(t, store, &stubCarrier{
		payload: service.ErrorPayload("destination not served"),
	})

	result, err := svc.Quote(context.Background(), QuoteRequest{Subtotal: decimal.NewFromInt(50)})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "destination not served", result.Error)
}
