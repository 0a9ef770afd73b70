package domain

import (
	"context"

	"github.com/commercelab/order-saga/shared/events"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/pkg/errors"
)

// OrderStatus represents the overall saga outcome
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// StepStatus is the orchestrator's bookkeeping for one participant step.
type StepStatus string

const (
	StepSkipped      StepStatus = "SKIPPED"
	StepReserved     StepStatus = "RESERVED"
	StepAuthorized   StepStatus = "AUTHORIZED"
	StepFailed       StepStatus = "FAILED"
	StepCompensating StepStatus = "COMPENSATING"
)

// Order aggregate root. One order is one saga: it moves from PENDING to
// CONFIRMED or CANCELLED exactly once.
type Order struct {
	OrderID         string
	Status          OrderStatus
	LRAID           string
	InventoryStatus StepStatus
	PaymentStatus   StepStatus
	Payload         string
	Timestamps      models.Timestamps

	events []*events.Event
}

// CreateOrder factory method
func CreateOrder(orderID, lraID, payload string) (*Order, error) {
	if orderID == "" {
		return nil, errors.New("order ID is required")
	}

	order := &Order{
		OrderID:         orderID,
		Status:          OrderStatusPending,
		LRAID:           lraID,
		InventoryStatus: StepSkipped,
		PaymentStatus:   StepSkipped,
		Payload:         payload,
		Timestamps:      models.NewTimestamps(),
	}

	event := events.NewEvent(models.ID(orderID), events.OrderCreatedEvent, OrderCreatedData{
		OrderID: orderID,
		LRAID:   lraID,
	})

	order.recordEvent(event)
	return order, nil
}

// Confirm marks the saga as fully successful
func (o *Order) Confirm() error {
	if o.Status != OrderStatusPending {
		return errors.New("order can only be confirmed from pending status")
	}

	o.Status = OrderStatusConfirmed
	o.InventoryStatus = StepReserved
	o.PaymentStatus = StepAuthorized
	o.Timestamps = o.Timestamps.Update()

	event := events.NewEvent(models.ID(o.OrderID), events.OrderConfirmedEvent, OrderOutcomeData{
		OrderID:         o.OrderID,
		LRAID:           o.LRAID,
		InventoryStatus: string(o.InventoryStatus),
		PaymentStatus:   string(o.PaymentStatus),
	})

	o.recordEvent(event)
	return nil
}

// Cancel marks the saga as failed with per-step bookkeeping. A step that
// already succeeded goes to COMPENSATING; the coordinator drives the
// actual compensation, this is bookkeeping only.
func (o *Order) Cancel(inventory, payment StepStatus) error {
	if o.Status != OrderStatusPending {
		return errors.New("order can only be cancelled from pending status")
	}

	o.Status = OrderStatusCancelled
	o.InventoryStatus = compensatingIfSucceeded(inventory)
	o.PaymentStatus = compensatingIfSucceeded(payment)
	o.Timestamps = o.Timestamps.Update()

	event := events.NewEvent(models.ID(o.OrderID), events.OrderCancelledEvent, OrderOutcomeData{
		OrderID:         o.OrderID,
		LRAID:           o.LRAID,
		InventoryStatus: string(o.InventoryStatus),
		PaymentStatus:   string(o.PaymentStatus),
	})

	o.recordEvent(event)
	return nil
}

func compensatingIfSucceeded(status StepStatus) StepStatus {
	if status == StepReserved || status == StepAuthorized {
		return StepCompensating
	}
	return status
}

// Events returns recorded domain events
func (o *Order) Events() []*events.Event {
	return o.events
}

// ClearEvents clears recorded events
func (o *Order) ClearEvents() {
	o.events = make([]*events.Event, 0)
}

func (o *Order) recordEvent(event *events.Event) {
	o.events = append(o.events, event)
}

// OrderCreatedData is the payload of an order.created event
type OrderCreatedData struct {
	OrderID string `json:"order_id"`
	LRAID   string `json:"lra_id"`
}

// OrderOutcomeData is the payload of order.confirmed and order.cancelled events
type OrderOutcomeData struct {
	OrderID         string `json:"order_id"`
	LRAID           string `json:"lra_id"`
	InventoryStatus string `json:"inventory_status"`
	PaymentStatus   string `json:"payment_status"`
}

// OrderRepository persists orders
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, orderID string) (*Order, error)
}
