package service

import (
	"context"

	"commerce-router/internal/common/errors"
	"commerce-router/internal/common/logging"
)

// ProviderGateway is the read side of the provider configuration cache.
type ProviderGateway interface {
	// FindEnabledByTypeOrdered returns the enabled providers for one service
	// type, ordered by ascending priority with insertion order breaking ties.
	FindEnabledByTypeOrdered(ctx context.Context, serviceType Type) ([]Provider, error)

	// FindByCode resolves one provider by its code within a service type.
	FindByCode(ctx context.Context, serviceType Type, code string) (Provider, bool, error)
}

// RoutingRuleGateway is the read side of the routing rule cache.
type RoutingRuleGateway interface {
	// FindEnabledByTypeOrdered returns the enabled rules for one service
	// type, ordered by ascending priority with insertion order breaking ties.
	FindEnabledByTypeOrdered(ctx context.Context, serviceType Type) ([]RoutingRule, error)
}

// Engine decides which provider codes are candidates for a request. Rules
// win over provider priority: the first enabled rule whose match document
// matches pins the decision to that rule's provider; with no matching rule
// every enabled provider is a candidate in priority order.
type Engine struct {
	providers ProviderGateway
	rules     RoutingRuleGateway
	matcher   *Matcher
	logger    logging.Logger
}

// NewEngine creates a selection engine over the cached gateways.
func NewEngine(providers ProviderGateway, rules RoutingRuleGateway) *Engine {
	return &Engine{
		providers: providers,
		rules:     rules,
		matcher:   NewMatcher(),
		logger:    logging.WithFields(logging.String("component", "engine")),
	}
}

// SelectProviders returns the ordered candidate provider codes for a request.
// A rule match narrows the list to exactly one code. An empty result is an
// error: with no enabled providers there is nothing to execute.
func (e *Engine) SelectProviders(ctx context.Context, serviceType Type, rc RouteContext) ([]string, error) {
	rules, err := e.rules.FindEnabledByTypeOrdered(ctx, serviceType)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		match := e.matcher.Matches(rc, rule.MatchDocument)
		e.logger.Debug("Evaluated routing rule",
			logging.String("rule_id", rule.ID),
			logging.String("service_type", string(serviceType)),
			logging.Bool("matched", match.Matched),
			logging.String("reason", match.Reason))
		if !match.Matched {
			continue
		}

		// A rule only pins the decision when its target can actually
		// serve it. A dangling or disabled target yields to the next
		// rule and finally to default priority ordering.
		target, found, err := e.providers.FindByCode(ctx, serviceType, rule.ProviderCode)
		if err != nil {
			return nil, err
		}
		if !found || !target.Enabled {
			e.logger.Warn("Matched rule targets unavailable provider, skipping",
				logging.String("rule_id", rule.ID),
				logging.String("provider_code", rule.ProviderCode),
				logging.Bool("found", found))
			continue
		}
		return []string{rule.ProviderCode}, nil
	}

	providers, err := e.providers.FindEnabledByTypeOrdered(ctx, serviceType)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, errors.ConfigError("no enabled providers").
			WithContext("service_type", string(serviceType))
	}

	codes := make([]string, 0, len(providers))
	for _, p := range providers {
		codes = append(codes, p.Code)
	}
	return codes, nil
}
