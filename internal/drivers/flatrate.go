// Package drivers holds the provider driver implementations compiled into
// the binary. Each driver registers under a stable key that provider rows
// reference, receives the raw request plus its decrypted configuration and
// answers in the shared payload vocabulary.
package drivers

import (
	"context"

	"github.com/shopspring/decimal"

	"commerce-router/internal/service"
)

// FlatRate is the in-process shipping fallback: a fixed rate with an
// optional free shipping threshold, restricted to configured CEP prefixes.
// It needs no network and is typically the lowest-priority shipping
// provider.
//
// Configuration keys: rate (number, required), free_threshold (number),
// cep_prefixes (list of strings).
type FlatRate struct{}

func NewFlatRate() *FlatRate { return &FlatRate{} }

func (d *FlatRate) Key() string               { return "shipping.flatrate" }
func (d *FlatRate) ServiceType() service.Type { return service.TypeShipping }

func (d *FlatRate) Execute(_ context.Context, request, config map[string]interface{}) map[string]interface{} {
	rate, ok := configDecimal(config, "rate")
	if !ok {
		return service.ErrorPayload("flat rate driver is missing the rate setting")
	}

	cep, _ := request["cep"].(string)
	if prefixes := configStrings(config, "cep_prefixes"); len(prefixes) > 0 {
		if !hasDigitPrefix(cep, prefixes) {
			return map[string]interface{}{
				"provider": "Flat Rate",
				"eligible": false,
				"cost":     0.0,
			}
		}
	}

	subtotal := requestDecimal(request, "subtotal")
	payload := map[string]interface{}{
		"provider":      "Flat Rate",
		"eligible":      true,
		"free_shipping": false,
	}

	if threshold, ok := configDecimal(config, "free_threshold"); ok {
		thresholdValue, _ := threshold.Float64()
		payload["threshold"] = thresholdValue
		if subtotal.GreaterThanOrEqual(threshold) {
			payload["cost"] = 0.0
			payload["free_shipping"] = true
			return payload
		}
	}

	cost, _ := rate.Float64()
	payload["cost"] = cost
	return payload
}

func configDecimal(m map[string]interface{}, key string) (decimal.Decimal, bool) {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

func requestDecimal(m map[string]interface{}, key string) decimal.Decimal {
	d, _ := configDecimal(m, key)
	return d
}

func configStrings(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func configString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func hasDigitPrefix(cep string, prefixes []string) bool {
	digits := digitsOf(cep)
	for _, prefix := range prefixes {
		p := digitsOf(prefix)
		if p != "" && len(digits) >= len(p) && digits[:len(p)] == p {
			return true
		}
	}
	return false
}

func digitsOf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
