package drivers

import (
	"context"
	"math"
	"strings"

	"commerce-router/internal/common/httpx"
	"commerce-router/internal/common/logging"
	"commerce-router/internal/service"
)

const melhorEnvioDefaultURL = "https://melhorenvio.com.br"

// MelhorEnvio quotes shipping through the Melhor Envio aggregator API.
//
// Configuration keys: token (required), zip_code (origin CEP, required),
// allowed_carriers (list of carrier names; empty allows all), api_url
// (override for sandbox and tests).
type MelhorEnvio struct {
	client *httpx.Client
	logger logging.Logger
}

func NewMelhorEnvio(client *httpx.Client) *MelhorEnvio {
	return &MelhorEnvio{
		client: client,
		logger: logging.WithFields(logging.String("driver", "shipping.melhorenvio")),
	}
}

func (d *MelhorEnvio) Key() string               { return "shipping.melhorenvio" }
func (d *MelhorEnvio) ServiceType() service.Type { return service.TypeShipping }

type melhorEnvioOption struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Price        string  `json:"price"`
	DeliveryTime int     `json:"delivery_time"`
	Error        string  `json:"error,omitempty"`
	Company      company `json:"company"`
}

type company struct {
	Name string `json:"name"`
}

func (d *MelhorEnvio) Execute(ctx context.Context, request, config map[string]interface{}) map[string]interface{} {
	token := configString(config, "token")
	origin := configString(config, "zip_code")
	if token == "" || origin == "" {
		return service.ErrorPayload("melhorenvio driver is missing token or zip_code")
	}

	destination := digitsOf(configString(request, "cep"))
	if len(destination) != 8 {
		return service.ErrorPayload("destination CEP must have 8 digits")
	}

	apiURL := configString(config, "api_url")
	if apiURL == "" {
		apiURL = melhorEnvioDefaultURL
	}

	body := map[string]interface{}{
		"from":    map[string]string{"postal_code": digitsOf(origin)},
		"to":      map[string]string{"postal_code": destination},
		"package": packFromItems(request),
	}

	var options []melhorEnvioOption
	err := d.client.PostJSON(ctx, apiURL+"/api/v2/me/shipment/calculate",
		map[string]string{"Authorization": "Bearer " + token}, body, &options)
	if err != nil {
		d.logger.Warn("Melhor Envio quote request failed", logging.Err(err))
		return service.ErrorPayload("shipping quote unavailable")
	}

	allowed := configStrings(config, "allowed_carriers")
	best, quoted := pickCheapest(options, allowed)
	if !quoted {
		return service.ErrorPayload("no carrier serves the destination")
	}

	cost, _ := priceOf(best)
	return map[string]interface{}{
		"provider":       "MelhorEnvio",
		"carrier":        best.Company.Name,
		"cost":           cost,
		"eligible":       true,
		"free_shipping":  false,
		"estimated_days": best.DeliveryTime,
		"options":        optionsPayload(options, allowed),
	}
}

// packFromItems folds the cart into a single box. The heuristic stacks
// items vertically: footprint of the largest item, heights and weights
// summed, floors at the carrier minimums (16x11x2 cm, 0.1 kg).
func packFromItems(request map[string]interface{}) map[string]interface{} {
	length, width, height, weight := 16.0, 11.0, 0.0, 0.0

	items, _ := request["items"].([]interface{})
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		qty := 1.0
		if q, ok := toNumber(item["quantity"]); ok && q > 0 {
			qty = q
		}
		if l, ok := toNumber(item["length_cm"]); ok {
			length = math.Max(length, l)
		}
		if w, ok := toNumber(item["width_cm"]); ok {
			width = math.Max(width, w)
		}
		if h, ok := toNumber(item["height_cm"]); ok {
			height += h * qty
		}
		if kg, ok := toNumber(item["weight_kg"]); ok {
			weight += kg * qty
		}
	}

	return map[string]interface{}{
		"length": length,
		"width":  width,
		"height": math.Max(height, 2.0),
		"weight": math.Max(weight, 0.1),
	}
}

func pickCheapest(options []melhorEnvioOption, allowed []string) (melhorEnvioOption, bool) {
	var best melhorEnvioOption
	found := false
	bestPrice := 0.0

	for _, opt := range options {
		if opt.Error != "" || !carrierAllowed(opt.Company.Name, allowed) {
			continue
		}
		price, ok := priceOf(opt)
		if !ok {
			continue
		}
		if !found || price < bestPrice {
			best, bestPrice, found = opt, price, true
		}
	}
	return best, found
}

func optionsPayload(options []melhorEnvioOption, allowed []string) []interface{} {
	out := make([]interface{}, 0, len(options))
	for _, opt := range options {
		if opt.Error != "" || !carrierAllowed(opt.Company.Name, allowed) {
			continue
		}
		price, ok := priceOf(opt)
		if !ok {
			continue
		}
		out = append(out, map[string]interface{}{
			"carrier":        opt.Company.Name,
			"service":        opt.Name,
			"cost":           price,
			"estimated_days": opt.DeliveryTime,
		})
	}
	return out
}

func priceOf(opt melhorEnvioOption) (float64, bool) {
	d, ok := configDecimal(map[string]interface{}{"p": opt.Price}, "p")
	if !ok {
		return 0, false
	}
	price, _ := d.Float64()
	return price, true
}

func carrierAllowed(name string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

func toNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	default:
		return 0, false
	}
}
