package application_test

import (
	"context"
	"testing"

	"github.com/commercelab/order-saga/inventory-service/application"
	"github.com/commercelab/order-saga/inventory-service/mocks"
	"github.com/commercelab/order-saga/shared/lra"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReservation(t *testing.T) {
	record := lra.NewParticipantRecord("order-1", testLRA, "{}", false)

	tests := []struct {
		name       string
		query      *application.GetReservationQuery
		storedErr  error
		stored     *lra.ParticipantRecord
		wantStatus string
		wantErr    error
	}{
		{
			name:       "found",
			query:      &application.GetReservationQuery{OrderID: "order-1"},
			stored:     record,
			wantStatus: string(lra.StatusTrying),
		},
		{
			name:      "not found",
			query:     &application.GetReservationQuery{OrderID: "order-2"},
			storedErr: lra.ErrRecordNotFound,
			wantErr:   application.ErrReservationNotFound,
		},
		{
			name:    "missing order ID",
			query:   &application.GetReservationQuery{},
			wantErr: errors.New("order ID is required"),
		},
		{
			name:      "store error",
			query:     &application.GetReservationQuery{OrderID: "order-3"},
			storedErr: errors.New("connection refused"),
			wantErr:   errors.New("failed to find reservation"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockParticipantStore{}
			if tt.query.OrderID != "" {
				store.On("FindMostRecentByBusinessKey", context.Background(), tt.query.OrderID).
					Return(tt.stored, tt.storedErr)
			}

			uc := application.NewGetReservation(store)
			response, err := uc.Execute(context.Background(), tt.query)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.query.OrderID, response.OrderID)
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, testLRA, response.LRAID)
		})
	}
}

func TestGetReservation_NotFoundSentinel(t *testing.T) {
	store := &mocks.MockParticipantStore{}
	store.On("FindMostRecentByBusinessKey", context.Background(), "missing").
		Return(nil, lra.ErrRecordNotFound)

	uc := application.NewGetReservation(store)
	_, err := uc.Execute(context.Background(), &application.GetReservationQuery{OrderID: "missing"})

	assert.True(t, errors.Is(err, application.ErrReservationNotFound))
}
