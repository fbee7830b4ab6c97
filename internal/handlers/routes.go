package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"commerce-router/internal/middleware"
)

// Router builds the HTTP route table.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogging)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/shipping/quote", h.ShippingQuote).Methods(http.MethodPost)
	api.HandleFunc("/payments", h.CreatePayment).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.auth.RequireAuth)
	admin.HandleFunc("/cache/refresh", h.RefreshCache).Methods(http.MethodPost)

	return r
}
