// Package shipping provides the shipping quote surface: it routes quote
// requests through the provider orchestrator and then applies the
// promotional shipping rule set (free shipping, flat rates, percentage
// discounts and the near-miss persuasive message) on top of the carrier
// quote.
package shipping

import (
	"github.com/shopspring/decimal"
)

// BenefitType enumerates the promotional benefits a shipping rule can grant.
type BenefitType string

const (
	BenefitFreeShipping       BenefitType = "FREE_SHIPPING"
	BenefitFlatRate           BenefitType = "FLAT_RATE"
	BenefitPercentageDiscount BenefitType = "PERCENTAGE_DISCOUNT"
)

// Trigger is the condition set of a shipping rule. Every populated field
// must hold for the rule to apply; bounds are inclusive at both ends.
type Trigger struct {
	CartTotalMin         *decimal.Decimal `json:"cart_total_min,omitempty"`
	CartTotalMax         *decimal.Decimal `json:"cart_total_max,omitempty"`
	MinItemsCount        *int             `json:"min_items_count,omitempty"`
	ValidZipCodePrefixes []string         `json:"valid_zip_code_prefixes,omitempty"`
	ValidCategoryIDs     []string         `json:"valid_category_ids,omitempty"`
}

// Benefit is what an applied rule does to the quoted cost. Value carries
// the flat rate amount or the discount percentage depending on Type.
type Benefit struct {
	Type  BenefitType     `json:"type"`
	Value decimal.Decimal `json:"value,omitempty"`
}

// Rule is one promotional shipping rule. Rules are evaluated in descending
// priority order (higher value first), the opposite convention of routing
// rules, and only the first matching active rule applies.
type Rule struct {
	Name     string  `json:"name"`
	Priority int     `json:"priority"`
	Active   bool    `json:"active"`
	Trigger  Trigger `json:"trigger"`
	Benefit  Benefit `json:"benefit"`
}

// CartItem is one line of the cart as far as shipping cares: physical
// dimensions for cubage and the category for rule triggers.
type CartItem struct {
	Quantity   int     `json:"quantity"`
	WeightKg   float64 `json:"weight_kg"`
	LengthCm   float64 `json:"length_cm"`
	HeightCm   float64 `json:"height_cm"`
	WidthCm    float64 `json:"width_cm"`
	CategoryID string  `json:"category_id,omitempty"`
}

// QuoteRequest is the shipping quote input.
type QuoteRequest struct {
	Cep      string          `json:"cep"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Items    []CartItem      `json:"items,omitempty"`
}

// QuoteResult is the normalized quote handed back to the storefront.
// AppliedRuleName and PersuasiveMessage are mutually exclusive: a quote
// either got a benefit or a nudge toward one, never both. OriginalCost is
// present only when a benefit changed the cost and preserves the carrier
// price from before the first rule application.
type QuoteResult struct {
	ProviderName      string           `json:"provider_name"`
	Success           bool             `json:"success"`
	Eligible          bool             `json:"eligible"`
	FreeShipping      bool             `json:"free_shipping"`
	Cost              decimal.Decimal  `json:"cost"`
	Threshold         *decimal.Decimal `json:"threshold,omitempty"`
	EstimatedDays     int              `json:"estimated_days,omitempty"`
	Error             string           `json:"error,omitempty"`
	AppliedRuleName   string           `json:"applied_rule_name,omitempty"`
	OriginalCost      *decimal.Decimal `json:"original_cost,omitempty"`
	PersuasiveMessage string           `json:"persuasive_message,omitempty"`
}
