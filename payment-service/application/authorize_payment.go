package application

import (
	"context"
	"encoding/json"
	"log"

	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/pkg/errors"
)

// AuthorizePaymentCommand is the try step of the payment participant
type AuthorizePaymentCommand struct {
	OrderID string       `json:"order_id"`
	Amount  models.Money `json:"amount"`
	Fail    bool         `json:"fail"`
}

// AuthorizationResponse is the business payload answered to the orchestrator
type AuthorizationResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	LRAID   string `json:"lra_id"`
}

// AuthorizePayment records an authorization attempt under the active LRA.
// A simulated failure (or a non-positive amount) is recorded as FAILED
// but still answered with 200; the orchestrator reads the business
// outcome from the status field.
type AuthorizePayment struct {
	store lra.ParticipantStore
}

// NewAuthorizePayment creates a new AuthorizePayment use case
func NewAuthorizePayment(store lra.ParticipantStore) *AuthorizePayment {
	return &AuthorizePayment{store: store}
}

// Execute executes the authorize payment use case
func (uc *AuthorizePayment) Execute(ctx context.Context, cmd *AuthorizePaymentCommand) (*AuthorizationResponse, error) {
	if cmd.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	ec := lra.EnlistmentFromContext(ctx)
	if ec == nil {
		return nil, errors.New("missing LRA context")
	}

	failed := cmd.Fail || !cmd.Amount.IsPositive()

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize authorization request")
	}

	record := lra.NewParticipantRecord(cmd.OrderID, ec.ID, string(payload), failed)
	if err := uc.store.Save(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to save authorization")
	}

	if failed {
		log.Printf("Payment authorization failed: orderID=%s lraID=%s amount=%d %s", cmd.OrderID, ec.ID, cmd.Amount.Amount, cmd.Amount.Currency)
	} else {
		log.Printf("Payment authorized: orderID=%s lraID=%s amount=%d %s", cmd.OrderID, ec.ID, cmd.Amount.Amount, cmd.Amount.Currency)
	}

	return &AuthorizationResponse{
		OrderID: record.BusinessKey,
		Status:  string(record.Status),
		LRAID:   record.LRAID,
	}, nil
}
