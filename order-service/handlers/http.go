package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/commercelab/order-saga/order-service/application"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	createOrder *application.CreateOrder
	getOrder    *application.GetOrder
	enlister    *lra.Enlister
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	createOrder *application.CreateOrder,
	getOrder *application.GetOrder,
	enlister *lra.Enlister,
) *OrderHandlers {
	return &OrderHandlers{
		createOrder: createOrder,
		getOrder:    getOrder,
		enlister:    enlister,
	}
}

// CreateOrder handles order placement requests
func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response, err := h.createOrder.Execute(r.Context(), &cmd)
	if err != nil {
		// the 5xx response is what drives the enlistment middleware to
		// cancel the LRA
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetOrder handles order retrieval requests
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	query := &application.GetOrderQuery{
		OrderID: orderID,
	}

	response, err := h.getOrder.Execute(r.Context(), query)
	if err != nil {
		if errors.Is(err, application.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RegisterRoutes registers order routes. Order placement runs under a
// fresh LRA that this service owns and ends on response.
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.With(h.enlister.Enlist(lra.Enlistment{
			Policy: lra.PolicyRequiresNew,
			End:    true,
		})).Post("/", h.CreateOrder)
		r.Get("/{orderID}", h.GetOrder)
	})
}
