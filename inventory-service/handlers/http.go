package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/commercelab/order-saga/inventory-service/application"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// InventoryHandlers contains inventory HTTP handlers
type InventoryHandlers struct {
	reserveStock   *application.ReserveStock
	getReservation *application.GetReservation
	participant    *lra.ParticipantResource
	enlister       *lra.Enlister
}

// NewInventoryHandlers creates new inventory handlers
func NewInventoryHandlers(
	reserveStock *application.ReserveStock,
	getReservation *application.GetReservation,
	participant *lra.ParticipantResource,
	enlister *lra.Enlister,
) *InventoryHandlers {
	return &InventoryHandlers{
		reserveStock:   reserveStock,
		getReservation: getReservation,
		participant:    participant,
		enlister:       enlister,
	}
}

// Reserve handles reservation requests from the orchestrator
func (h *InventoryHandlers) Reserve(w http.ResponseWriter, r *http.Request) {
	var cmd application.ReserveStockCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.reserveStock.Execute(r.Context(), &cmd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetStatus handles reservation status queries by order ID
func (h *InventoryHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	query := &application.GetReservationQuery{
		OrderID: chi.URLParam(r, "orderID"),
	}

	response, err := h.getReservation.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, application.ErrReservationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers inventory routes. The reserve endpoint runs
// under a mandatory LRA and joins as a participant; the callback surface
// is served by the shared participant resource.
func (h *InventoryHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.With(h.enlister.Enlist(lra.Enlistment{
			Policy:      lra.PolicyMandatory,
			Participant: true,
		})).Post("/reserve", h.Reserve)
		r.Get("/status/{orderID}", h.GetStatus)
		h.participant.RegisterRoutes(r)
	})
}
