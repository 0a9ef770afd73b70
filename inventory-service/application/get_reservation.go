package application

import (
	"context"

	"github.com/commercelab/order-saga/shared/lra"
	"github.com/pkg/errors"
)

// ErrReservationNotFound is returned when no reservation matches the order
var ErrReservationNotFound = errors.New("reservation not found")

// GetReservationQuery represents a status query by business key
type GetReservationQuery struct {
	OrderID string `json:"order_id"`
}

// GetReservation reports the stored reservation status for monitoring.
// Unlike the coordinator-facing lra-status callback, a missing record is
// a genuine not-found error here.
type GetReservation struct {
	store lra.ParticipantStore
}

// NewGetReservation creates a new GetReservation use case
func NewGetReservation(store lra.ParticipantStore) *GetReservation {
	return &GetReservation{store: store}
}

// Execute executes the get reservation use case
func (uc *GetReservation) Execute(ctx context.Context, query *GetReservationQuery) (*ReservationResponse, error) {
	if query.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	record, err := uc.store.FindMostRecentByBusinessKey(ctx, query.OrderID)
	if errors.Is(err, lra.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find reservation")
	}

	return &ReservationResponse{
		OrderID: record.BusinessKey,
		Status:  string(record.Status),
		LRAID:   record.LRAID,
	}, nil
}
