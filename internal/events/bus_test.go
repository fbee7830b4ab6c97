package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-router/internal/redis"
)

func TestBus_PublishReachesOnlySubscribedDomain(t *testing.T) {
	bus := NewBus()

	var providerSignals, ruleSignals int
	bus.Subscribe(DomainProviders, func(string) { providerSignals++ })
	bus.Subscribe(DomainRoutingRules, func(string) { ruleSignals++ })

	bus.Publish(DomainProviders)
	bus.Publish(DomainProviders)

	assert.Equal(t, 2, providerSignals)
	assert.Equal(t, 0, ruleSignals)
}

func TestBus_PublishGlobalWithoutRedisFallsBackToLocal(t *testing.T) {
	bus := NewBus()

	var got string
	bus.Subscribe(DomainSystemConfig, func(domain string) { got = domain })

	err := bus.PublishGlobal(context.Background(), DomainSystemConfig)
	require.NoError(t, err)
	assert.Equal(t, DomainSystemConfig, got)
}

func TestBus_RedisBridge(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := redis.NewClient(&redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	bus := NewBus()
	defer bus.Close()

	signals := make(chan string, 1)
	bus.Subscribe(DomainProviderConfig, func(domain string) { signals <- domain })
	bus.AttachRedis(client)

	// Give the subscription goroutine time to connect before publishing
	time.Sleep(50 * time.Millisecond)

	err = bus.PublishGlobal(context.Background(), DomainProviderConfig)
	require.NoError(t, err)

	select {
	case domain := <-signals:
		assert.Equal(t, DomainProviderConfig, domain)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation signal never arrived through redis")
	}
}
