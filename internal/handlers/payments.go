package handlers

import (
	"encoding/json"
	"net/http"

	"commerce-router/internal/service"
)

// CreatePayment handles POST /api/payments. The request body is passed to
// the resolved payment driver as-is; the routing layer only picks the
// provider.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var request map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orchestrator.Execute(r.Context(), service.TypePayment, request, h.config.ServiceEnvironment)
	if err != nil {
		h.logger.Error("Payment routing failed", err)
		writeError(w, http.StatusInternalServerError, "payment routing failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
