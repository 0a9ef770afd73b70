package application

import (
	"context"
	"encoding/json"
	"log"

	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/pkg/errors"
)

// ReserveStockCommand is the try step of the inventory participant
type ReserveStockCommand struct {
	OrderID string             `json:"order_id"`
	Items   []models.OrderItem `json:"items"`
	Fail    bool               `json:"fail"`
}

// ReservationResponse is the business payload answered to the orchestrator
type ReservationResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	LRAID   string `json:"lra_id"`
}

// ReserveStock records a reservation attempt under the active LRA. A
// simulated business failure is recorded as FAILED but still answered
// with 200: enlistment success is independent of the business outcome,
// which the orchestrator reads from the status field and the coordinator
// discovers through status polling.
type ReserveStock struct {
	store lra.ParticipantStore
}

// NewReserveStock creates a new ReserveStock use case
func NewReserveStock(store lra.ParticipantStore) *ReserveStock {
	return &ReserveStock{store: store}
}

// Execute executes the reserve stock use case
func (uc *ReserveStock) Execute(ctx context.Context, cmd *ReserveStockCommand) (*ReservationResponse, error) {
	if cmd.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	ec := lra.EnlistmentFromContext(ctx)
	if ec == nil {
		return nil, errors.New("missing LRA context")
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize reservation request")
	}

	record := lra.NewParticipantRecord(cmd.OrderID, ec.ID, string(payload), cmd.Fail)
	if err := uc.store.Save(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to save reservation")
	}

	if cmd.Fail {
		log.Printf("Inventory reservation failed (simulated): orderID=%s lraID=%s", cmd.OrderID, ec.ID)
	} else {
		log.Printf("Inventory reserved: orderID=%s lraID=%s", cmd.OrderID, ec.ID)
	}

	return &ReservationResponse{
		OrderID: record.BusinessKey,
		Status:  string(record.Status),
		LRAID:   record.LRAID,
	}, nil
}
