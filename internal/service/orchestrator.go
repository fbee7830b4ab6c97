package service

import (
	"context"
	"encoding/json"

	"commerce-router/internal/common/logging"
	"commerce-router/internal/crypto"
)

// ConfigGateway is the read side of the provider configuration cache. It
// resolves the active configuration document for one provider in one
// deployment environment.
type ConfigGateway interface {
	FindConfigJSON(ctx context.Context, providerCode, environment string) (string, bool, error)
}

// Orchestrator ties selection and execution together: resolve the candidate
// providers for a request, take the first one, load and decrypt its
// configuration and hand the request to the registered driver.
//
// Failover across candidates is deliberately absent. The original routing
// behavior executes the first candidate only; a failed provider surfaces to
// the caller, which decides whether to retry.
type Orchestrator struct {
	engine    *Engine
	providers ProviderGateway
	configs   ConfigGateway
	drivers   *DriverRegistry
	encryptor *crypto.ConfigEncryptor
	logger    logging.Logger
}

// NewOrchestrator wires the orchestrator. The encryptor may be nil when
// provider configurations are stored in the clear.
func NewOrchestrator(engine *Engine, providers ProviderGateway, configs ConfigGateway, drivers *DriverRegistry, encryptor *crypto.ConfigEncryptor) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		providers: providers,
		configs:   configs,
		drivers:   drivers,
		encryptor: encryptor,
		logger:    logging.WithFields(logging.String("component", "orchestrator")),
	}
}

// Execute runs one request through the routing pipeline for the given
// service type and deployment environment.
//
// Engine and gateway failures come back as an error. Resolution failures
// that an administrator must fix (no provider available, dangling provider
// code, unregistered driver key) come back as an unsuccessful Result whose
// payload names the problem, so callers get a uniform shape either way.
func (o *Orchestrator) Execute(ctx context.Context, serviceType Type, request map[string]interface{}, environment string) (Result, error) {
	rc := RouteContextFromRequest(request)

	candidates, err := o.engine.SelectProviders(ctx, serviceType, rc)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return o.failure("", "NO_PROVIDER_AVAILABLE", "no provider available for "+string(serviceType)), nil
	}

	code := candidates[0]

	provider, found, err := o.providers.FindByCode(ctx, serviceType, code)
	if err != nil {
		return Result{}, err
	}
	if !found {
		o.logger.Warn("Routing decision points at unknown provider",
			logging.String("provider_code", code),
			logging.String("service_type", string(serviceType)))
		return o.failure(code, "PROVIDER_NOT_FOUND", "provider not found: "+code), nil
	}

	driver, err := o.drivers.Get(provider.DriverKey)
	if err != nil {
		o.logger.Warn("Provider references unregistered driver",
			logging.String("provider_code", code),
			logging.String("driver_key", provider.DriverKey))
		return o.failure(code, "DRIVER_NOT_FOUND", "driver not registered: "+provider.DriverKey), nil
	}

	config, err := o.loadConfig(ctx, code, environment)
	if err != nil {
		return Result{}, err
	}

	payload := driver.Execute(ctx, request, config)
	result := Result{
		Success:      !IsErrorPayload(payload),
		ProviderCode: code,
		Payload:      payload,
	}

	o.logger.Info("Executed provider",
		logging.String("provider_code", code),
		logging.String("service_type", string(serviceType)),
		logging.Bool("success", result.Success))

	return result, nil
}

// loadConfig fetches, parses and decrypts the provider configuration. A
// provider with no stored configuration runs with an empty document.
func (o *Orchestrator) loadConfig(ctx context.Context, providerCode, environment string) (map[string]interface{}, error) {
	raw, found, err := o.configs.FindConfigJSON(ctx, providerCode, environment)
	if err != nil {
		return nil, err
	}
	if !found || raw == "" {
		raw = "{}"
	}

	var config map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		o.logger.Warn("Provider configuration is not a JSON object, using empty config",
			logging.String("provider_code", providerCode),
			logging.String("environment", environment))
		config = map[string]interface{}{}
	}

	if o.encryptor != nil {
		decrypted, err := o.encryptor.DecryptMap(config)
		if err != nil {
			return nil, err
		}
		config = decrypted
	}
	return config, nil
}

func (o *Orchestrator) failure(providerCode, code, message string) Result {
	payload := ErrorPayload(message)
	payload["code"] = code
	return Result{
		Success:      false,
		ProviderCode: providerCode,
		Payload:      payload,
	}
}
