package handlers

import (
	"net/http"
)

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status":   "ok",
		"database": "ok",
		"redis":    "disabled",
	}

	if err := h.store.Health(); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "error"
	}

	if h.redis != nil {
		body["redis"] = "ok"
		if err := h.redis.Health(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["redis"] = "error"
		}
	}

	writeJSON(w, status, body)
}
