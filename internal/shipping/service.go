package shipping

import (
	"context"

	"github.com/shopspring/decimal"

	"commerce-router/internal/service"
)

// Service is the shipping quote façade: one call routes the request to a
// carrier through the orchestrator and layers the promotional rules on the
// returned quote.
type Service struct {
	orchestrator *service.Orchestrator
	rules        *RulesEngine
	environment  string
}

// NewService wires the façade for one deployment environment.
func NewService(orchestrator *service.Orchestrator, rules *RulesEngine, environment string) *Service {
	return &Service{
		orchestrator: orchestrator,
		rules:        rules,
		environment:  environment,
	}
}

// Quote resolves a shipping quote for the request. Carrier failures come
// back as an unsuccessful QuoteResult; an error return means the routing
// layer itself failed.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (QuoteResult, error) {
	subtotal, _ := req.Subtotal.Float64()
	request := map[string]interface{}{
		"cep":      req.Cep,
		"subtotal": subtotal,
		"items":    itemsToPayload(req.Items),
	}

	routed, err := s.orchestrator.Execute(ctx, service.TypeShipping, request, s.environment)
	if err != nil {
		return QuoteResult{}, err
	}

	result := quoteFromPayload(routed)
	s.rules.Enrich(ctx, req, &result)
	return result, nil
}

func itemsToPayload(items []CartItem) []interface{} {
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]interface{}{
			"quantity":    item.Quantity,
			"weight_kg":   item.WeightKg,
			"length_cm":   item.LengthCm,
			"height_cm":   item.HeightCm,
			"width_cm":    item.WidthCm,
			"category_id": item.CategoryID,
		})
	}
	return out
}

// quoteFromPayload maps the provider-shaped payload onto the normalized
// quote. Drivers agree on the key vocabulary: provider, cost, eligible,
// free_shipping, threshold, estimated_days and the error/message pair.
func quoteFromPayload(routed service.Result) QuoteResult {
	result := QuoteResult{
		ProviderName: routed.ProviderCode,
		Success:      routed.Success,
	}

	payload := routed.Payload
	if payload == nil {
		return result
	}

	if name, ok := payload["provider"].(string); ok && name != "" {
		result.ProviderName = name
	}
	if cost, ok := toDecimal(payload["cost"]); ok {
		result.Cost = cost
	}
	if eligible, ok := payload["eligible"].(bool); ok {
		result.Eligible = eligible
	}
	if free, ok := payload["free_shipping"].(bool); ok {
		result.FreeShipping = free
	}
	if threshold, ok := toDecimal(payload["threshold"]); ok {
		result.Threshold = &threshold
	}
	if days, ok := payload["estimated_days"].(float64); ok {
		result.EstimatedDays = int(days)
	} else if days, ok := payload["estimated_days"].(int); ok {
		result.EstimatedDays = days
	}
	if !routed.Success {
		if msg, ok := payload["message"].(string); ok {
			result.Error = msg
		}
	}
	return result
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case string:
		d, err := decimal.NewFromString(val)
		return d, err == nil
	case decimal.Decimal:
		return val, true
	default:
		return decimal.Decimal{}, false
	}
}
