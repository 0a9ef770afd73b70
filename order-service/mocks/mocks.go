package mocks

import (
	"context"

	"github.com/commercelab/order-saga/order-service/application"
	"github.com/commercelab/order-saga/order-service/domain"
	"github.com/commercelab/order-saga/shared/events"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock of domain.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if order := args.Get(0); order != nil {
		return order.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockParticipantCaller is a mock of application.ParticipantCaller
type MockParticipantCaller struct {
	mock.Mock
}

func (m *MockParticipantCaller) ReserveInventory(ctx context.Context, lraID string, call *application.InventoryCall) (*application.ParticipantReply, error) {
	args := m.Called(ctx, lraID, call)
	if reply := args.Get(0); reply != nil {
		return reply.(*application.ParticipantReply), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockParticipantCaller) AuthorizePayment(ctx context.Context, lraID string, call *application.PaymentCall) (*application.ParticipantReply, error) {
	args := m.Called(ctx, lraID, call)
	if reply := args.Get(0); reply != nil {
		return reply.(*application.ParticipantReply), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPublisher is a mock of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}
