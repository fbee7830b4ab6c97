package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"commerce-router/internal/common/logging"
	"commerce-router/internal/dynconfig"
)

// RulesEngine applies the promotional shipping rule set to a carrier quote.
// The rule set and the persuasive near-miss margin are dynamic settings, so
// marketing can tune promotions without a deploy.
type RulesEngine struct {
	settings *dynconfig.Service
	logger   logging.Logger
}

// NewRulesEngine creates the engine over the dynamic settings service.
func NewRulesEngine(settings *dynconfig.Service) *RulesEngine {
	return &RulesEngine{
		settings: settings,
		logger:   logging.WithFields(logging.String("component", "shipping_rules")),
	}
}

// Rules loads and parses the active rule set. An absent or unparsable
// setting yields no rules rather than an error; promotions degrade to
// plain carrier pricing.
func (e *RulesEngine) Rules(ctx context.Context) []Rule {
	raw := e.settings.GetString(ctx, dynconfig.KeyShippingRules, "")
	if raw == "" {
		return nil
	}

	var rules []Rule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		e.logger.Warn("Shipping rule set is not valid JSON, ignoring",
			logging.Err(err))
		return nil
	}
	return rules
}

// Enrich applies the rule set to the quote in place. Exactly one of two
// things can happen: the highest-priority matching rule applies its benefit,
// or, with no match, a near-miss free shipping rule leaves a persuasive
// message. Failed quotes pass through untouched.
func (e *RulesEngine) Enrich(ctx context.Context, req QuoteRequest, result *QuoteResult) {
	if !result.Success {
		return
	}

	rules := e.Rules(ctx)
	if len(rules) == 0 {
		return
	}

	// Higher priority value wins, the opposite of routing rule ordering.
	ordered := append([]Rule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	for _, rule := range ordered {
		if !rule.Active || !e.matches(rule.Trigger, req) {
			continue
		}
		e.applyBenefit(rule, result)
		e.logger.Debug("Applied shipping rule",
			logging.String("rule", rule.Name),
			logging.String("benefit", string(rule.Benefit.Type)))
		return
	}

	e.addPersuasiveMessage(ctx, ordered, req, result)
}

func (e *RulesEngine) matches(t Trigger, req QuoteRequest) bool {
	if t.CartTotalMin != nil && req.Subtotal.LessThan(*t.CartTotalMin) {
		return false
	}
	if t.CartTotalMax != nil && req.Subtotal.GreaterThan(*t.CartTotalMax) {
		return false
	}
	if t.MinItemsCount != nil && totalItems(req.Items) < *t.MinItemsCount {
		return false
	}
	if len(t.ValidZipCodePrefixes) > 0 && !zipMatchesAny(req.Cep, t.ValidZipCodePrefixes) {
		return false
	}
	// Category triggers are best effort: a request that carries no
	// category information does not block on them.
	if len(t.ValidCategoryIDs) > 0 {
		categories := requestCategories(req.Items)
		if len(categories) > 0 && !anyCategoryIn(categories, t.ValidCategoryIDs) {
			return false
		}
	}
	return true
}

func (e *RulesEngine) applyBenefit(rule Rule, result *QuoteResult) {
	// Preserve the carrier price once, before the first rule touches it.
	if result.OriginalCost == nil {
		original := result.Cost
		result.OriginalCost = &original
	}

	switch rule.Benefit.Type {
	case BenefitFreeShipping:
		result.Cost = decimal.Zero
		result.FreeShipping = true

	case BenefitFlatRate:
		result.Cost = clampNonNegative(rule.Benefit.Value)
		result.FreeShipping = result.Cost.IsZero()

	case BenefitPercentageDiscount:
		factor := decimal.NewFromInt(1).Sub(rule.Benefit.Value.Div(decimal.NewFromInt(100)))
		result.Cost = clampNonNegative(result.Cost.Mul(factor).Round(2))
		result.FreeShipping = result.Cost.IsZero()

	default:
		e.logger.Warn("Unknown benefit type on shipping rule",
			logging.String("rule", rule.Name),
			logging.String("benefit", string(rule.Benefit.Type)))
		result.OriginalCost = nil
		return
	}

	result.AppliedRuleName = rule.Name
	result.PersuasiveMessage = ""
}

// addPersuasiveMessage looks for the free shipping rule the customer almost
// qualified for. Only the cart total gap counts: it must be positive and
// within the configured margin. The highest-priority near miss wins.
func (e *RulesEngine) addPersuasiveMessage(ctx context.Context, ordered []Rule, req QuoteRequest, result *QuoteResult) {
	margin := e.settings.GetDecimal(ctx, dynconfig.KeyShippingPersuasiveGap,
		decimal.RequireFromString(dynconfig.DefaultPersuasiveGapValue))

	for _, rule := range ordered {
		if !rule.Active || rule.Benefit.Type != BenefitFreeShipping || rule.Trigger.CartTotalMin == nil {
			continue
		}
		gap := rule.Trigger.CartTotalMin.Sub(req.Subtotal)
		if gap.IsPositive() && gap.LessThanOrEqual(margin) {
			result.PersuasiveMessage = fmt.Sprintf(
				"Add R$ %s more to get Free Shipping under rule: %s",
				gap.StringFixed(2), rule.Name)
			return
		}
	}
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func totalItems(items []CartItem) int {
	total := 0
	for _, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += qty
	}
	return total
}

func zipMatchesAny(cep string, prefixes []string) bool {
	digits := onlyDigits(cep)
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(digits, onlyDigits(prefix)) {
			return true
		}
	}
	return false
}

func requestCategories(items []CartItem) []string {
	var out []string
	for _, item := range items {
		if item.CategoryID != "" {
			out = append(out, item.CategoryID)
		}
	}
	return out
}

func anyCategoryIn(categories, valid []string) bool {
	for _, c := range categories {
		for _, v := range valid {
			if c == v {
				return true
			}
		}
	}
	return false
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
