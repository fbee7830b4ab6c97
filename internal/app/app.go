// Package app wires the commerce router together: storage, the
// invalidation bus, the cached gateways, the driver registry, the HTTP
// surface and the background cache warmer.
package app

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"commerce-router/internal/auth"
	"commerce-router/internal/common/httpx"
	"commerce-router/internal/common/logging"
	"commerce-router/internal/config"
	"commerce-router/internal/crypto"
	"commerce-router/internal/drivers"
	"commerce-router/internal/dynconfig"
	"commerce-router/internal/events"
	"commerce-router/internal/gateway"
	"commerce-router/internal/handlers"
	"commerce-router/internal/redis"
	"commerce-router/internal/server"
	"commerce-router/internal/service"
	"commerce-router/internal/shipping"
	"commerce-router/internal/storage"

	_ "commerce-router/internal/storage/memory"
	_ "commerce-router/internal/storage/postgres"
	_ "commerce-router/internal/storage/sqlite"
)

type App struct {
	cfg    *config.Config
	store  storage.Store
	redis  *redis.Client
	bus    *events.Bus
	cron   *cron.Cron
	server *server.Server
	logger logging.Logger

	providers       *gateway.Providers
	routingRules    *gateway.RoutingRules
	providerConfigs *gateway.ProviderConfigs
}

// New builds the application from validated configuration.
func New(cfg *config.Config) (*App, error) {
	logger := logging.WithFields(logging.String("component", "app"))

	store, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()

	var redisClient *redis.Client
	if cfg.RedisAddress != "" {
		db, _ := strconv.Atoi(cfg.RedisDB)
		redisClient, err = redis.NewClient(&redis.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       db,
		})
		if err != nil {
			return nil, err
		}
		bus.AttachRedis(redisClient)
		logger.Info("Redis invalidation bridge attached",
			logging.String("address", cfg.RedisAddress))
	}

	settings := dynconfig.New(store, bus)
	ttl := gateway.TTLSource(settings)

	providers := gateway.NewProviders(store, bus, ttl)
	routingRules := gateway.NewRoutingRules(store, bus, ttl)
	providerConfigs := gateway.NewProviderConfigs(store, bus, ttl)

	var encryptor *crypto.ConfigEncryptor
	if cfg.EncryptionKey != "" {
		encryptor, err = crypto.NewConfigEncryptor(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
	}

	httpClient := httpx.NewClient()
	registry := service.NewDriverRegistry(
		drivers.NewFlatRate(),
		drivers.NewMelhorEnvio(httpClient),
		drivers.NewMercadoPago(httpClient),
	)

	engine := service.NewEngine(providers, routingRules)
	orchestrator := service.NewOrchestrator(engine, providers, providerConfigs, registry, encryptor)
	shippingService := shipping.NewService(orchestrator,
		shipping.NewRulesEngine(settings), cfg.ServiceEnvironment)

	h := handlers.New(cfg, store, redisClient, bus, auth.New(cfg.JWTSecret), orchestrator, shippingService)

	a := &App{
		cfg:             cfg,
		store:           store,
		redis:           redisClient,
		bus:             bus,
		cron:            cron.New(),
		server:          server.New(h.Router(), cfg.Port),
		logger:          logger,
		providers:       providers,
		routingRules:    routingRules,
		providerConfigs: providerConfigs,
	}

	// Keep snapshots warm so the first request after a quiet period does
	// not pay the reload.
	if _, err := a.cron.AddFunc("@every 4m", a.warmCaches); err != nil {
		return nil, err
	}

	return a, nil
}

// Start warms the caches, starts the cron scheduler and the HTTP server.
// The returned channel carries a fatal listen error.
func (a *App) Start() <-chan error {
	a.warmCaches()
	a.cron.Start()

	a.logger.Info("Server starting",
		logging.String("port", a.cfg.Port),
		logging.String("environment", a.cfg.ServiceEnvironment))
	return a.server.Start()
}

// Shutdown stops the server, the scheduler and every connection.
func (a *App) Shutdown(ctx context.Context) error {
	a.cron.Stop()
	a.bus.Close()

	err := a.server.Shutdown(ctx)

	if a.redis != nil {
		if closeErr := a.redis.Close(); err == nil {
			err = closeErr
		}
	}
	if closeErr := a.store.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *App) warmCaches() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.providers.Refresh(ctx); err != nil {
		a.logger.Warn("Provider cache warmup failed", logging.Err(err))
	}
	if err := a.routingRules.Refresh(ctx); err != nil {
		a.logger.Warn("Routing rule cache warmup failed", logging.Err(err))
	}
	if err := a.providerConfigs.Refresh(ctx); err != nil {
		a.logger.Warn("Provider config cache warmup failed", logging.Err(err))
	}
}
