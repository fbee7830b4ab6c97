// Package events carries configuration-changed signals to the cached
// gateways. Each gateway subscribes to the logical domain it caches and
// receives only invalidations for that domain; a redis pub/sub bridge fans
// the same signals out to every replica of the process.
package events

import (
	"context"
	"sync"

	"commerce-router/internal/common/logging"
	"commerce-router/internal/redis"
)

// Logical domains that gateways can subscribe to.
const (
	DomainProviders      = "PROVIDERS"
	DomainRoutingRules   = "ROUTING_RULES"
	DomainProviderConfig = "PROVIDER_CONFIG"
	DomainSystemConfig   = "SYSTEM_CONFIG"
)

// Channel is the redis pub/sub channel bridged by AttachRedis.
const Channel = "commerce-router:config-changed"

// Handler receives the domain tag of a configuration change.
type Handler func(domain string)

// Bus is a topic-based configuration-changed signal bus. Local subscribers
// are invoked synchronously; the optional redis bridge delivers signals
// published by other replicas.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]Handler
	client *redis.Client
	cancel context.CancelFunc
	logger logging.Logger
}

// NewBus creates a bus with no subscribers and no redis bridge.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[string][]Handler),
		logger: logging.WithFields(logging.String("component", "events")),
	}
}

// Subscribe registers a handler for one domain. Handlers registered for a
// domain are invoked in registration order.
func (b *Bus) Subscribe(domain string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[domain] = append(b.subs[domain], handler)
}

// Publish delivers a configuration-changed signal to local subscribers of
// the domain. Subscribers run synchronously so that a caller (e.g. an admin
// refresh endpoint) observes the invalidation as complete on return.
func (b *Bus) Publish(domain string) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[domain]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(domain)
	}
}

// PublishGlobal publishes the signal to all replicas through redis. Local
// delivery happens via the loopback subscription. Without a redis bridge it
// degrades to a local Publish.
func (b *Bus) PublishGlobal(ctx context.Context, domain string) error {
	if b.client == nil {
		b.Publish(domain)
		return nil
	}
	return b.client.Publish(ctx, Channel, domain)
}

// AttachRedis bridges the bus over redis pub/sub. Messages on the channel
// carry the domain tag; every received message is fanned out to local
// subscribers, including messages this replica published itself.
func (b *Bus) AttachRedis(client *redis.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	b.client = client
	b.cancel = cancel

	pubsub := client.Subscribe(ctx, Channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.logger.Debug("Received invalidation signal",
					logging.String("domain", msg.Payload))
				b.Publish(msg.Payload)
			}
		}
	}()
}

// Close stops the redis bridge if one is attached.
func (b *Bus) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}
