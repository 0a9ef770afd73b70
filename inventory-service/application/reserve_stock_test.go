package application_test

import (
	"context"
	"testing"

	"github.com/commercelab/order-saga/inventory-service/application"
	"github.com/commercelab/order-saga/inventory-service/mocks"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/commercelab/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testLRA = "http://coord/lra-coordinator/0_test_inv"

func sagaContext() context.Context {
	return lra.WithEnlistment(context.Background(), &lra.EnlistmentContext{
		ID: testLRA,
	})
}

func TestReserveStock_SuccessRecordsTrying(t *testing.T) {
	store := &mocks.MockParticipantStore{}

	var saved *lra.ParticipantRecord
	store.On("Save", mock.Anything, mock.AnythingOfType("*lra.ParticipantRecord")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*lra.ParticipantRecord)
		}).Return(nil)

	uc := application.NewReserveStock(store)

	response, err := uc.Execute(sagaContext(), &application.ReserveStockCommand{
		OrderID: "order-1",
		Items:   []models.OrderItem{{SKU: "sku-1", Quantity: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, "order-1", response.OrderID)
	assert.Equal(t, string(lra.StatusTrying), response.Status)
	assert.Equal(t, testLRA, response.LRAID)

	require.NotNil(t, saved)
	assert.Equal(t, "order-1", saved.BusinessKey)
	assert.Equal(t, testLRA, saved.LRAID)
	assert.Equal(t, lra.StatusTrying, saved.Status)
	assert.NotEmpty(t, saved.ID)
	assert.Contains(t, saved.Payload, "sku-1")
}

func TestReserveStock_SimulatedFailureRecordsFailedButAnswers(t *testing.T) {
	store := &mocks.MockParticipantStore{}

	var saved *lra.ParticipantRecord
	store.On("Save", mock.Anything, mock.AnythingOfType("*lra.ParticipantRecord")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*lra.ParticipantRecord)
		}).Return(nil)

	uc := application.NewReserveStock(store)

	response, err := uc.Execute(sagaContext(), &application.ReserveStockCommand{
		OrderID: "order-2",
		Items:   []models.OrderItem{{SKU: "sku-1", Quantity: 1}},
		Fail:    true,
	})

	require.NoError(t, err, "a business failure still enlists successfully")
	assert.Equal(t, string(lra.StatusFailed), response.Status)
	require.NotNil(t, saved)
	assert.Equal(t, lra.StatusFailed, saved.Status)
}

func TestReserveStock_RequiresOrderID(t *testing.T) {
	store := &mocks.MockParticipantStore{}
	uc := application.NewReserveStock(store)

	_, err := uc.Execute(sagaContext(), &application.ReserveStockCommand{})

	assert.Error(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReserveStock_RequiresLRAContext(t *testing.T) {
	store := &mocks.MockParticipantStore{}
	uc := application.NewReserveStock(store)

	_, err := uc.Execute(context.Background(), &application.ReserveStockCommand{OrderID: "order-3"})

	assert.Error(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReserveStock_StoreError(t *testing.T) {
	store := &mocks.MockParticipantStore{}
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	uc := application.NewReserveStock(store)

	_, err := uc.Execute(sagaContext(), &application.ReserveStockCommand{
		OrderID: "order-4",
		Items:   []models.OrderItem{{SKU: "sku-2", Quantity: 1}},
	})

	assert.Error(t, err)
}
