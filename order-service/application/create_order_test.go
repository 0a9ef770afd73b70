package application_test

import (
	"context"
	"testing"

	"github.com/commercelab/order-saga/order-service/application"
	"github.com/commercelab/order-saga/order-service/domain"
	"github.com/commercelab/order-saga/order-service/mocks"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testLRA = "http://coord/lra-coordinator/0_test_1"

func sagaContext() context.Context {
	return lra.WithEnlistment(context.Background(), &lra.EnlistmentContext{
		ID:            testLRA,
		StartedHere:   true,
		EndOnResponse: true,
	})
}

func okReply(orderID string) *application.ParticipantReply {
	return &application.ParticipantReply{OrderID: orderID, Status: "TRYING", LRAID: testLRA}
}

func failedReply(orderID string) *application.ParticipantReply {
	return &application.ParticipantReply{OrderID: orderID, Status: "FAILED", LRAID: testLRA}
}

func TestCreateOrder_HappyPath(t *testing.T) {
	repo := &mocks.MockOrderRepository{}
	caller := &mocks.MockParticipantCaller{}
	publisher := &mocks.MockPublisher{}

	var saved []*domain.Order
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*domain.Order)
			snapshot := *order
			saved = append(saved, &snapshot)
		}).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	caller.On("ReserveInventory", mock.Anything, testLRA, mock.AnythingOfType("*application.InventoryCall")).
		Return(okReply("order-1"), nil).Once()
	caller.On("AuthorizePayment", mock.Anything, testLRA, mock.AnythingOfType("*application.PaymentCall")).
		Return(okReply("order-1"), nil).Once()

	uc := application.NewCreateOrder(repo, caller, publisher)

	response, err := uc.Execute(sagaContext(), &application.CreateOrderCommand{
		OrderID:  "order-1",
		Items:    []models.OrderItem{{SKU: "sku-1", Quantity: 2}},
		Amount:   5000,
		Currency: "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, "order-1", response.OrderID)
	assert.Equal(t, "CONFIRMED", response.Status)
	assert.Equal(t, testLRA, response.LRAID)
	assert.Equal(t, "RESERVED", response.InventoryStatus)
	assert.Equal(t, "AUTHORIZED", response.PaymentStatus)

	require.Len(t, saved, 2)
	assert.Equal(t, domain.OrderStatusPending, saved[0].Status)
	assert.Equal(t, domain.OrderStatusConfirmed, saved[1].Status)
	caller.AssertExpectations(t)
}

func TestCreateOrder_InventoryBusinessFailure(t *testing.T) {
	repo := &mocks.MockOrderRepository{}
	caller := &mocks.MockParticipantCaller{}
	publisher := &mocks.MockPublisher{}

	var saved []*domain.Order
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*domain.Order)
			snapshot := *order
			saved = append(saved, &snapshot)
		}).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	caller.On("ReserveInventory", mock.Anything, testLRA, mock.Anything).
		Return(failedReply("order-1"), nil).Once()

	uc := application.NewCreateOrder(repo, caller, publisher)

	_, err := uc.Execute(sagaContext(), &application.CreateOrderCommand{
		OrderID:       "order-1",
		FailInventory: true,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory reservation failed")

	// payment was never reached
	caller.AssertNotCalled(t, "AuthorizePayment", mock.Anything, mock.Anything, mock.Anything)

	require.Len(t, saved, 2)
	final := saved[1]
	assert.Equal(t, domain.OrderStatusCancelled, final.Status)
	assert.Equal(t, domain.StepFailed, final.InventoryStatus)
	assert.Equal(t, domain.StepSkipped, final.PaymentStatus)
}

func TestCreateOrder_PaymentFailureAfterInventorySuccess(t *testing.T) {
	repo := &mocks.MockOrderRepository{}
	caller := &mocks.MockParticipantCaller{}
	publisher := &mocks.MockPublisher{}

	var saved []*domain.Order
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*domain.Order)
			snapshot := *order
			saved = append(saved, &snapshot)
		}).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	caller.On("ReserveInventory", mock.Anything, testLRA, mock.Anything).
		Return(okReply("order-1"), nil).Once()
	caller.On("AuthorizePayment", mock.Anything, testLRA, mock.Anything).
		Return(failedReply("order-1"), nil).Once()

	uc := application.NewCreateOrder(repo, caller, publisher)

	_, err := uc.Execute(sagaContext(), &application.CreateOrderCommand{
		OrderID:     "order-1",
		FailPayment: true,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment authorization failed")

	require.Len(t, saved, 2)
	final := saved[1]
	assert.Equal(t, domain.OrderStatusCancelled, final.Status)
	// the reserved step needs compensating, the failed one does not
	assert.Equal(t, domain.StepCompensating, final.InventoryStatus)
	assert.Equal(t, domain.StepFailed, final.PaymentStatus)
}

func TestCreateOrder_InventoryTransportError(t *testing.T) {
	repo := &mocks.MockOrderRepository{}
	caller := &mocks.MockParticipantCaller{}
	publisher := &mocks.MockPublisher{}

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	caller.On("ReserveInventory", mock.Anything, testLRA, mock.Anything).
		Return(nil, errors.New("connection refused")).Once()

	uc := application.NewCreateOrder(repo, caller, publisher)

	_, err := uc.Execute(sagaContext(), &application.CreateOrderCommand{OrderID: "order-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	caller.AssertNotCalled(t, "AuthorizePayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_GeneratesOrderID(t *testing.T) {
	repo := &mocks.MockOrderRepository{}
	caller := &mocks.MockParticipantCaller{}
	publisher := &mocks.MockPublisher{}

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	caller.On("ReserveInventory", mock.Anything, testLRA, mock.Anything).
		Return(okReply(""), nil).Once()
	caller.On("AuthorizePayment", mock.Anything, testLRA, mock.Anything).
		Return(okReply(""), nil).Once()

	uc := application.NewCreateOrder(repo, caller, publisher)

	response, err := uc.Execute(sagaContext(), &application.CreateOrderCommand{})

	require.NoError(t, err)
	assert.NotEmpty(t, response.OrderID)
}

func TestCreateOrder_PropagatesLRAToParticipants(t *testing.T) {
	repo := &mocks.MockOrderRepository{}
	caller := &mocks.MockParticipantCaller{}
	publisher := &mocks.MockPublisher{}

	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	caller.On("ReserveInventory", mock.Anything, testLRA, mock.MatchedBy(func(call *application.InventoryCall) bool {
		return call.OrderID == "order-1" && call.Fail
	})).Return(okReply("order-1"), nil).Once()
	caller.On("AuthorizePayment", mock.Anything, testLRA, mock.MatchedBy(func(call *application.PaymentCall) bool {
		return call.Amount.Amount == 5000 && call.Amount.Currency == "USD"
	})).Return(okReply("order-1"), nil).Once()

	uc := application.NewCreateOrder(repo, caller, publisher)

	_, err := uc.Execute(sagaContext(), &application.CreateOrderCommand{
		OrderID:       "order-1",
		Amount:        5000,
		Currency:      "USD",
		FailInventory: true,
	})

	require.NoError(t, err)
	caller.AssertExpectations(t)
}
