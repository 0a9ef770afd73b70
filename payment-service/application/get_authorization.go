package application

import (
	"context"

	"github.com/commercelab/order-saga/shared/lra"
	"github.com/pkg/errors"
)

// ErrAuthorizationNotFound is returned when no authorization matches the order
var ErrAuthorizationNotFound = errors.New("authorization not found")

// GetAuthorizationQuery represents a status query by business key
type GetAuthorizationQuery struct {
	OrderID string `json:"order_id"`
}

// GetAuthorization reports the stored authorization status for monitoring
type GetAuthorization struct {
	store lra.ParticipantStore
}

// NewGetAuthorization creates a new GetAuthorization use case
func NewGetAuthorization(store lra.ParticipantStore) *GetAuthorization {
	return &GetAuthorization{store: store}
}

// Execute executes the get authorization use case
func (uc *GetAuthorization) Execute(ctx context.Context, query *GetAuthorizationQuery) (*AuthorizationResponse, error) {
	if query.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	record, err := uc.store.FindMostRecentByBusinessKey(ctx, query.OrderID)
	if errors.Is(err, lra.ErrRecordNotFound) {
		return nil, ErrAuthorizationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find authorization")
	}

	return &AuthorizationResponse{
		OrderID: record.BusinessKey,
		Status:  string(record.Status),
		LRAID:   record.LRAID,
	}, nil
}
