package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/commercelab/order-saga/payment-service/application"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// PaymentHandlers contains payment HTTP handlers
type PaymentHandlers struct {
	authorizePayment *application.AuthorizePayment
	getAuthorization *application.GetAuthorization
	participant      *lra.ParticipantResource
	enlister         *lra.Enlister
}

// NewPaymentHandlers creates new payment handlers
func NewPaymentHandlers(
	authorizePayment *application.AuthorizePayment,
	getAuthorization *application.GetAuthorization,
	participant *lra.ParticipantResource,
	enlister *lra.Enlister,
) *PaymentHandlers {
	return &PaymentHandlers{
		authorizePayment: authorizePayment,
		getAuthorization: getAuthorization,
		participant:      participant,
		enlister:         enlister,
	}
}

// Authorize handles authorization requests from the orchestrator
func (h *PaymentHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	var cmd application.AuthorizePaymentCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.authorizePayment.Execute(r.Context(), &cmd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetStatus handles authorization status queries by order ID
func (h *PaymentHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	query := &application.GetAuthorizationQuery{
		OrderID: chi.URLParam(r, "orderID"),
	}

	response, err := h.getAuthorization.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, application.ErrAuthorizationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers payment routes. The authorize endpoint runs
// under a mandatory LRA and joins as a participant; the callback surface
// is served by the shared participant resource.
func (h *PaymentHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/payment", func(r chi.Router) {
		r.With(h.enlister.Enlist(lra.Enlistment{
			Policy:      lra.PolicyMandatory,
			Participant: true,
		})).Post("/authorize", h.Authorize)
		r.Get("/status/{orderID}", h.GetStatus)
		h.participant.RegisterRoutes(r)
	})
}
