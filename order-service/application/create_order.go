package application

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/commercelab/order-saga/order-service/domain"
	"github.com/commercelab/order-saga/shared/events"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/commercelab/order-saga/shared/telemetry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// InventoryCall is the request sent to the inventory participant
type InventoryCall struct {
	OrderID string             `json:"order_id"`
	Items   []models.OrderItem `json:"items"`
	Fail    bool               `json:"fail"`
}

// PaymentCall is the request sent to the payment participant
type PaymentCall struct {
	OrderID string       `json:"order_id"`
	Amount  models.Money `json:"amount"`
	Fail    bool         `json:"fail"`
}

// ParticipantReply is the business payload a participant answers with
type ParticipantReply struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	LRAID   string `json:"lra_id"`
}

// Failed reports whether the participant signalled a business failure
func (r *ParticipantReply) Failed() bool {
	return strings.EqualFold(r.Status, string(lra.StatusFailed))
}

// ParticipantCaller invokes participant services inside the active LRA
type ParticipantCaller interface {
	ReserveInventory(ctx context.Context, lraID string, call *InventoryCall) (*ParticipantReply, error)
	AuthorizePayment(ctx context.Context, lraID string, call *PaymentCall) (*ParticipantReply, error)
}

// CreateOrderCommand represents the order placement request
type CreateOrderCommand struct {
	OrderID       string             `json:"order_id"`
	Items         []models.OrderItem `json:"items"`
	Amount        int64              `json:"amount"`
	Currency      string             `json:"currency"`
	FailInventory bool               `json:"fail_inventory"`
	FailPayment   bool               `json:"fail_payment"`
}

// CreateOrderResponse represents the saga outcome
type CreateOrderResponse struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	LRAID           string `json:"lra_id"`
	InventoryStatus string `json:"inventory_status"`
	PaymentStatus   string `json:"payment_status"`
}

// CreateOrder orchestrates the order saga: reserve inventory, then
// authorize payment, inside the LRA the enlistment middleware started.
// It never triggers compensation itself; it marks local state and reports
// failure by error, letting the middleware cancel the LRA and the
// coordinator fan compensation out to the joined participants.
type CreateOrder struct {
	orderRepository domain.OrderRepository
	participants    ParticipantCaller
	publisher       events.Publisher
}

// NewCreateOrder creates a new CreateOrder use case
func NewCreateOrder(orderRepository domain.OrderRepository, participants ParticipantCaller, publisher events.Publisher) *CreateOrder {
	return &CreateOrder{
		orderRepository: orderRepository,
		participants:    participants,
		publisher:       publisher,
	}
}

// Execute executes the create order use case
func (uc *CreateOrder) Execute(ctx context.Context, cmd *CreateOrderCommand) (*CreateOrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "create_order")
	defer span.End()

	var lraID string
	if ec := lra.EnlistmentFromContext(ctx); ec != nil {
		lraID = ec.ID
	}
	span.SetAttributes(attribute.String("lra.id", lraID))

	orderID := cmd.OrderID
	if orderID == "" {
		orderID = uuid.New().String()
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize order request")
	}

	order, err := domain.CreateOrder(orderID, lraID, string(payload))
	if err != nil {
		return nil, err
	}

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save order")
	}
	uc.publish(ctx, order)

	log.Printf("Order processing started: orderID=%s lraID=%s", orderID, lraID)

	inventoryStatus := domain.StepSkipped
	paymentStatus := domain.StepSkipped

	reply, err := uc.participants.ReserveInventory(ctx, lraID, &InventoryCall{
		OrderID: orderID,
		Items:   cmd.Items,
		Fail:    cmd.FailInventory,
	})
	if err != nil || reply.Failed() {
		inventoryStatus = domain.StepFailed
		return nil, uc.cancel(ctx, order, inventoryStatus, paymentStatus,
			stepFailure("inventory reservation", err))
	}
	inventoryStatus = domain.StepReserved

	reply, err = uc.participants.AuthorizePayment(ctx, lraID, &PaymentCall{
		OrderID: orderID,
		Amount:  models.NewMoney(cmd.Amount, cmd.Currency),
		Fail:    cmd.FailPayment,
	})
	if err != nil || reply.Failed() {
		paymentStatus = domain.StepFailed
		return nil, uc.cancel(ctx, order, inventoryStatus, paymentStatus,
			stepFailure("payment authorization", err))
	}

	if err := order.Confirm(); err != nil {
		return nil, err
	}
	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to save confirmed order")
	}
	uc.publish(ctx, order)

	log.Printf("Order completed successfully: orderID=%s lraID=%s", orderID, lraID)

	return &CreateOrderResponse{
		OrderID:         order.OrderID,
		Status:          string(order.Status),
		LRAID:           order.LRAID,
		InventoryStatus: string(order.InventoryStatus),
		PaymentStatus:   string(order.PaymentStatus),
	}, nil
}

// cancel records the failed outcome and surfaces the cause to the caller.
// The resulting error response is what makes the enlistment middleware
// cancel the LRA.
func (uc *CreateOrder) cancel(ctx context.Context, order *domain.Order, inventory, payment domain.StepStatus, cause error) error {
	log.Printf("Order failed: orderID=%s lraID=%s err=%v", order.OrderID, order.LRAID, cause)

	if err := order.Cancel(inventory, payment); err != nil {
		return err
	}
	if err := uc.orderRepository.Save(ctx, order); err != nil {
		log.Printf("Failed to save cancelled order: orderID=%s err=%v", order.OrderID, err)
	}
	uc.publish(ctx, order)

	return cause
}

// stepFailure normalizes a participant failure: a transport or protocol
// error is wrapped, a clean business FAILED reply becomes an error of its own.
func stepFailure(step string, err error) error {
	if err != nil {
		return errors.Wrap(err, step+" failed")
	}
	return errors.New(step + " failed: participant reported FAILED")
}

func (uc *CreateOrder) publish(ctx context.Context, order *domain.Order) {
	evts := order.Events()
	if len(evts) == 0 {
		return
	}
	if err := uc.publisher.Publish(ctx, evts...); err != nil {
		// lifecycle events are advisory; the saga outcome is already persisted
		log.Printf("Failed to publish order events: orderID=%s err=%v", order.OrderID, err)
	}
	order.ClearEvents()
}
