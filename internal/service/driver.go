package service

import (
	"context"

	"commerce-router/internal/common/registry"
)

// Driver executes one provider integration. Implementations are registered
// once at startup under a stable key that provider rows reference through
// their driver_key column.
//
// Execute receives the raw request and the provider's decrypted configuration
// and returns a provider-shaped payload. Expected business failures (carrier
// rejected the quote, gateway declined the charge) are reported inside the
// payload via ErrorPayload, not as a Go error; an error return is reserved
// for conditions the orchestrator itself must handle.
type Driver interface {
	// Key is the stable registration key, e.g. "shipping.melhorenvio".
	Key() string

	// ServiceType is the capability domain this driver serves.
	ServiceType() Type

	// Execute performs the provider call.
	Execute(ctx context.Context, request, config map[string]interface{}) map[string]interface{}
}

// DriverRegistry holds the drivers compiled into this binary, keyed by
// driver key. Registration happens at startup; lookups are concurrent-safe.
type DriverRegistry struct {
	*registry.Registry[Driver]
}

// NewDriverRegistry creates a registry pre-populated with the given drivers.
func NewDriverRegistry(drivers ...Driver) *DriverRegistry {
	r := &DriverRegistry{Registry: registry.New[Driver]()}
	for _, d := range drivers {
		r.Register(d)
	}
	return r
}
