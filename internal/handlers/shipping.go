package handlers

import (
	"encoding/json"
	"net/http"

	"commerce-router/internal/common/logging"
	"commerce-router/internal/shipping"
)

// ShippingQuote handles POST /api/shipping/quote.
func (h *Handlers) ShippingQuote(w http.ResponseWriter, r *http.Request) {
	var req shipping.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cep == "" {
		writeError(w, http.StatusBadRequest, "cep is required")
		return
	}

	result, err := h.shipping.Quote(r.Context(), req)
	if err != nil {
		h.logger.Error("Shipping quote failed", err,
			logging.String("cep", req.Cep))
		writeError(w, http.StatusInternalServerError, "shipping quote failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
