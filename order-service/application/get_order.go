package application

import (
	"context"

	"github.com/commercelab/order-saga/order-service/domain"
	"github.com/pkg/errors"
)

// ErrOrderNotFound is returned when no order matches the requested ID
var ErrOrderNotFound = errors.New("order not found")

// GetOrderQuery represents the query to get an order
type GetOrderQuery struct {
	OrderID string `json:"order_id"`
}

// GetOrderResponse represents the stored saga state of an order
type GetOrderResponse struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	LRAID           string `json:"lra_id"`
	InventoryStatus string `json:"inventory_status"`
	PaymentStatus   string `json:"payment_status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// GetOrder use case
type GetOrder struct {
	orderRepository domain.OrderRepository
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orderRepository domain.OrderRepository) *GetOrder {
	return &GetOrder{
		orderRepository: orderRepository,
	}
}

// Execute executes the get order use case
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*GetOrderResponse, error) {
	if query.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	order, err := uc.orderRepository.FindByID(ctx, query.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	if order == nil {
		return nil, ErrOrderNotFound
	}

	return &GetOrderResponse{
		OrderID:         order.OrderID,
		Status:          string(order.Status),
		LRAID:           order.LRAID,
		InventoryStatus: string(order.InventoryStatus),
		PaymentStatus:   string(order.PaymentStatus),
		CreatedAt:       order.Timestamps.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       order.Timestamps.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}
