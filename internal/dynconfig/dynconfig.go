// Package dynconfig exposes runtime-tunable settings stored in the
// system_configs table. Values are cached with a short TTL and flushed
// eagerly when a system-config invalidation signal arrives, so operational
// knobs (cache TTLs, shipping rule sets, messaging thresholds) take effect
// without a restart. Environment variables act as a fallback for keys that
// have no stored value.
package dynconfig

import (
	"context"
	"os"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"commerce-router/internal/common/logging"
	"commerce-router/internal/events"
	"commerce-router/internal/storage"
)

// Well-known setting keys.
const (
	KeyCacheTTLSeconds        = "CACHE_TTL_SECONDS"
	KeyShippingRules          = "SHIPPING_RULES"
	KeyShippingPersuasiveGap  = "SHIPPING_PERSUASIVE_MARGIN"
	DefaultCacheTTLSeconds    = 300
	DefaultPersuasiveGapValue = "50.00"
)

const cacheTTL = 60 * time.Second

// Service reads dynamic settings with a layered lookup: in-process cache,
// then storage, then process environment, then the caller's default.
type Service struct {
	store  storage.Store
	cache  *gocache.Cache
	logger logging.Logger
}

// New creates the service and subscribes it to system-config invalidations.
func New(store storage.Store, bus *events.Bus) *Service {
	s := &Service{
		store:  store,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		logger: logging.WithFields(logging.String("component", "dynconfig")),
	}
	if bus != nil {
		bus.Subscribe(events.DomainSystemConfig, func(string) {
			s.cache.Flush()
		})
	}
	return s
}

// GetString returns the setting value, or def when the key is unset.
func (s *Service) GetString(ctx context.Context, key, def string) string {
	if value, ok := s.lookup(ctx, key); ok {
		return value
	}
	return def
}

// GetLong returns the setting parsed as an integer, or def when the key is
// unset or unparsable.
func (s *Service) GetLong(ctx context.Context, key string, def int64) int64 {
	value, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Warn("Dynamic setting is not an integer, using default",
			logging.String("key", key),
			logging.String("value", value))
		return def
	}
	return parsed
}

// GetBool returns the setting parsed as a boolean, or def when the key is
// unset or unparsable.
func (s *Service) GetBool(ctx context.Context, key string, def bool) bool {
	value, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		s.logger.Warn("Dynamic setting is not a boolean, using default",
			logging.String("key", key),
			logging.String("value", value))
		return def
	}
	return parsed
}

// GetDecimal returns the setting parsed as a decimal, or def when the key
// is unset or unparsable.
func (s *Service) GetDecimal(ctx context.Context, key string, def decimal.Decimal) decimal.Decimal {
	value, ok := s.lookup(ctx, key)
	if !ok {
		return def
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		s.logger.Warn("Dynamic setting is not a decimal, using default",
			logging.String("key", key),
			logging.String("value", value))
		return def
	}
	return parsed
}

// CacheTTL returns the gateway snapshot TTL.
func (s *Service) CacheTTL(ctx context.Context) time.Duration {
	seconds := s.GetLong(ctx, KeyCacheTTLSeconds, DefaultCacheTTLSeconds)
	if seconds <= 0 {
		seconds = DefaultCacheTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool) {
	if cached, found := s.cache.Get(key); found {
		if value, ok := cached.(string); ok {
			return value, true
		}
	}

	configs, err := s.store.ListSystemConfigs(ctx)
	if err != nil {
		s.logger.Warn("Failed to load system configs, falling back to environment",
			logging.Err(err))
	} else {
		for k, v := range configs {
			s.cache.SetDefault(k, v)
		}
		if value, ok := configs[key]; ok {
			return value, true
		}
	}

	if value := os.Getenv(key); value != "" {
		return value, true
	}
	return "", false
}
