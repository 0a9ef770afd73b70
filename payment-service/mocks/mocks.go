package mocks

import (
	"context"

	"github.com/commercelab/order-saga/shared/lra"
	"github.com/stretchr/testify/mock"
)

// MockParticipantStore is a mock of lra.ParticipantStore
type MockParticipantStore struct {
	mock.Mock
}

func (m *MockParticipantStore) Save(ctx context.Context, record *lra.ParticipantRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockParticipantStore) FindMostRecentByLRA(ctx context.Context, lraID string) (*lra.ParticipantRecord, error) {
	args := m.Called(ctx, lraID)
	if record := args.Get(0); record != nil {
		return record.(*lra.ParticipantRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockParticipantStore) FindMostRecentByBusinessKey(ctx context.Context, key string) (*lra.ParticipantRecord, error) {
	args := m.Called(ctx, key)
	if record := args.Get(0); record != nil {
		return record.(*lra.ParticipantRecord), args.Error(1)
	}
	return nil, args.Error(1)
}
