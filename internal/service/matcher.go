package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/shopspring/decimal"
)

// RuleMatch is the outcome of evaluating one match document against a
// RouteContext, with a short machine-readable reason for observability.
type RuleMatch struct {
	Matched bool
	Reason  string
}

// Matcher evaluates routing-rule match documents. A match document is a JSON
// object in one of two shapes:
//
//   - {"expression": <jsonlogic>}: a jsonlogic expression over the context
//     variables country, cep, subtotal and attributes.*. There is no
//     scripting engine behind it; an expression referencing an unknown
//     variable resolves to null and does not match.
//   - legacy keys {"country": "BR", "cep_prefix": ["010"], "min_total": 100}:
//     all present keys must match (AND).
//
// Matcher is stateless and safe for concurrent use. It never returns an
// error: the admin write boundary rejects unparsable documents before they
// reach the rule cache, and anything malformed that slips through evaluates
// to "not matched".
type Matcher struct{}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Matches evaluates the match document against the context.
func (m *Matcher) Matches(ctx RouteContext, matchDocument string) RuleMatch {
	doc := strings.TrimSpace(matchDocument)
	if doc == "" {
		return RuleMatch{Matched: false, Reason: "empty_match_document"}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &fields); err != nil {
		return RuleMatch{Matched: false, Reason: "invalid_match_document"}
	}

	if expr, ok := fields["expression"]; ok {
		return m.matchExpression(ctx, expr)
	}

	return m.matchLegacy(ctx, fields)
}

func (m *Matcher) matchExpression(ctx RouteContext, expr interface{}) RuleMatch {
	ruleJSON, err := json.Marshal(expr)
	if err != nil {
		return RuleMatch{Matched: false, Reason: "expression_error"}
	}
	dataJSON, err := json.Marshal(ctx.evalData())
	if err != nil {
		return RuleMatch{Matched: false, Reason: "expression_error"}
	}

	var result bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(ruleJSON), bytes.NewReader(dataJSON), &result); err != nil {
		return RuleMatch{Matched: false, Reason: "expression_error"}
	}

	var value interface{}
	if result.Len() > 0 {
		if err := json.Unmarshal(result.Bytes(), &value); err != nil {
			return RuleMatch{Matched: false, Reason: "expression_error"}
		}
	}

	if isTruthy(value) {
		return RuleMatch{Matched: true, Reason: "expression_matched"}
	}
	return RuleMatch{Matched: false, Reason: "expression_mismatch"}
}

func (m *Matcher) matchLegacy(ctx RouteContext, fields map[string]interface{}) RuleMatch {
	if country, ok := fields["country"].(string); ok && country != "" {
		if !strings.EqualFold(country, ctx.Country) {
			return RuleMatch{Matched: false, Reason: "country_mismatch"}
		}
	}

	if rawPrefixes, ok := fields["cep_prefix"]; ok {
		prefixes := toStringSlice(rawPrefixes)
		if len(prefixes) > 0 && !anyPrefix(digitsOnly(ctx.DestinationZip), prefixes) {
			return RuleMatch{Matched: false, Reason: "cep_prefix_mismatch"}
		}
	}

	if rawMin, ok := fields["min_total"]; ok {
		if min, ok := toFloat(rawMin); ok {
			subtotal, _ := ctx.CartSubtotal.Float64()
			if subtotal < min {
				return RuleMatch{Matched: false, Reason: "min_total_mismatch"}
			}
		}
	}

	return RuleMatch{Matched: true, Reason: "legacy_matched"}
}

func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != "" && val != "false"
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return false
	}
}

func toStringSlice(v interface{}) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		if val == "" {
			return nil
		}
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	default:
		return 0, false
	}
}

func anyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
