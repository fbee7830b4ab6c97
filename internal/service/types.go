// Package service contains the dynamic multi-provider routing core: the
// configuration model for providers and routing rules, the rule matcher, the
// selection engine and the orchestrator that executes a resolved provider
// through its registered driver.
package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Type is the closed enumeration of capability domains a provider can serve.
type Type string

const (
	TypePayment  Type = "PAYMENT"
	TypeShipping Type = "SHIPPING"
	TypeFiscal   Type = "FISCAL"
)

// ParseType converts a stored string into a Type.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(s)) {
	case TypePayment:
		return TypePayment, nil
	case TypeShipping:
		return TypeShipping, nil
	case TypeFiscal:
		return TypeFiscal, nil
	default:
		return "", fmt.Errorf("unknown service type: %s", s)
	}
}

// Provider is an administrator-managed external integration for one service
// type. Providers are read-only to the routing core; the admin workflow that
// creates and edits them lives outside this process.
type Provider struct {
	ID            string `json:"id"`
	ServiceType   Type   `json:"service_type"`
	Code          string `json:"code"`     // unique per service type
	Name          string `json:"name"`     // human-readable name
	Enabled       bool   `json:"enabled"`  // disabled providers never participate
	Priority      int    `json:"priority"` // lower value = tried earlier
	DriverKey     string `json:"driver_key"`
	HealthEnabled bool   `json:"health_enabled"`
}

// RoutingRule binds a match document to a target provider. Enabled rules are
// evaluated in ascending priority order (lower value first); the first match
// overrides the default provider priority ordering.
//
// Note the ordering convention is the opposite of shipping benefit rules,
// which evaluate higher priority values first.
type RoutingRule struct {
	ID              string          `json:"id"`
	ServiceType     Type            `json:"service_type"`
	Enabled         bool            `json:"enabled"`
	Priority        int             `json:"priority"` // lower value = evaluated earlier
	MatchDocument   string          `json:"match_document"`
	ProviderCode    string          `json:"provider_code"`
	BehaviorPayload json.RawMessage `json:"behavior_payload,omitempty"` // opaque, passed through
}

// RouteContext is the immutable snapshot of request attributes a routing
// decision is evaluated against. Constructed fresh per decision, never
// mutated.
type RouteContext struct {
	Country        string
	DestinationZip string
	CartSubtotal   decimal.Decimal
	Attributes     map[string]interface{}
}

// RouteContextFromRequest builds a RouteContext from a raw driver request.
// Country defaults to BR, the zip comes from the "cep" attribute and the
// subtotal from "subtotal"; the full request map is exposed to rule
// expressions under "attributes".
func RouteContextFromRequest(request map[string]interface{}) RouteContext {
	country := "BR"
	if c, ok := request["country"].(string); ok && c != "" {
		country = c
	}

	cep, _ := request["cep"].(string)

	subtotal := decimal.Zero
	switch v := request["subtotal"].(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			subtotal = d
		}
	case float64:
		subtotal = decimal.NewFromFloat(v)
	case int:
		subtotal = decimal.NewFromInt(int64(v))
	case decimal.Decimal:
		subtotal = v
	}

	return RouteContext{
		Country:        country,
		DestinationZip: cep,
		CartSubtotal:   subtotal,
		Attributes:     request,
	}
}

// evalData flattens the context into the variable namespace visible to rule
// expressions. Unknown variables resolve to null there, which the matcher
// treats as "not matched".
func (c RouteContext) evalData() map[string]interface{} {
	subtotal, _ := c.CartSubtotal.Float64()
	return map[string]interface{}{
		"country":    c.Country,
		"cep":        c.DestinationZip,
		"subtotal":   subtotal,
		"attributes": c.Attributes,
	}
}

// Result is the normalized outcome of one orchestrator invocation.
// Constructed once, never mutated, discarded by the caller after inspection.
type Result struct {
	Success      bool                   `json:"success"`
	ProviderCode string                 `json:"provider_code,omitempty"`
	Payload      map[string]interface{} `json:"payload"`
}

// Driver response payload error convention: a driver never returns a Go
// error for expected business failures; it sets "error": true and a
// "message" in its payload instead, so callers can tell engine problems
// (error return) apart from remote rejections (structured payload).

// ErrorPayload builds a structured driver error payload.
func ErrorPayload(msg string) map[string]interface{} {
	return map[string]interface{}{"error": true, "message": msg}
}

// IsErrorPayload reports whether a driver payload carries the error flag.
func IsErrorPayload(payload map[string]interface{}) bool {
	flag, ok := payload["error"]
	if !ok {
		return false
	}
	switch v := flag.(type) {
	case bool:
		return v
	case string:
		return v != "" && v != "false"
	default:
		return true
	}
}
