// Package handlers implements the HTTP API: the public quote and payment
// endpoints, the JWT-guarded admin surface and the health probe.
package handlers

import (
	"encoding/json"
	"net/http"

	"commerce-router/internal/auth"
	"commerce-router/internal/common/logging"
	"commerce-router/internal/config"
	"commerce-router/internal/events"
	"commerce-router/internal/redis"
	"commerce-router/internal/service"
	"commerce-router/internal/shipping"
	"commerce-router/internal/storage"
)

type Handlers struct {
	config       *config.Config
	store        storage.Store
	redis        *redis.Client
	bus          *events.Bus
	auth         *auth.Auth
	orchestrator *service.Orchestrator
	shipping     *shipping.Service
	logger       logging.Logger
}

func New(cfg *config.Config, store storage.Store, redisClient *redis.Client, bus *events.Bus, authHandler *auth.Auth, orchestrator *service.Orchestrator, shippingService *shipping.Service) *Handlers {
	return &Handlers{
		config:       cfg,
		store:        store,
		redis:        redisClient,
		bus:          bus,
		auth:         authHandler,
		orchestrator: orchestrator,
		shipping:     shippingService,
		logger:       logging.WithFields(logging.String("component", "handlers")),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
