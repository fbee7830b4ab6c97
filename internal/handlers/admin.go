package handlers

import (
	"encoding/json"
	"net/http"

	"commerce-router/internal/common/logging"
	"commerce-router/internal/events"
)

var allDomains = []string{
	events.DomainProviders,
	events.DomainRoutingRules,
	events.DomainProviderConfig,
	events.DomainSystemConfig,
}

// RefreshCache handles POST /api/admin/cache/refresh. It broadcasts an
// invalidation for the requested domains (all of them by default) to every
// replica, so admin writes take effect before the TTL would notice them.
func (h *Handlers) RefreshCache(w http.ResponseWriter, r *http.Request) {
	domains := allDomains

	if r.Body != nil && r.ContentLength != 0 {
		var body struct {
			Domains []string `json:"domains"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Domains) > 0 {
			for _, domain := range body.Domains {
				if !knownDomain(domain) {
					writeError(w, http.StatusBadRequest, "unknown domain: "+domain)
					return
				}
			}
			domains = body.Domains
		}
	}

	for _, domain := range domains {
		if err := h.bus.PublishGlobal(r.Context(), domain); err != nil {
			h.logger.Error("Failed to broadcast cache invalidation", err,
				logging.String("domain", domain))
			writeError(w, http.StatusInternalServerError, "failed to broadcast invalidation")
			return
		}
	}

	h.logger.Info("Cache refresh requested",
		logging.Any("domains", domains))
	writeJSON(w, http.StatusOK, map[string]interface{}{"refreshed": domains})
}

func knownDomain(domain string) bool {
	for _, d := range allDomains {
		if d == domain {
			return true
		}
	}
	return false
}
