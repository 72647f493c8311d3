package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gw-transaction-webhook/internal/models"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) InsertIfAbsent(ctx context.Context, tx *models.Transaction) (*models.Transaction, bool, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockStorage) TransitionStatus(ctx context.Context, transactionID string, from, to models.TransactionStatus, at time.Time) (*models.Transaction, bool, error) {
	args := m.Called(ctx, transactionID, from, to, at)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockStorage) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, params models.ListParams) ([]*models.Transaction, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(transactionID string) bool {
	args := m.Called(transactionID)
	return args.Bool(0)
}

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) Settle(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) SendTransactionFinalizedEvent(ctx context.Context, event models.TransactionFinalizedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}
