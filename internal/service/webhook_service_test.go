package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupWebhookService() (*WebhookService, *MockStorage, *MockScheduler) {
	storage := new(MockStorage)
	scheduler := new(MockScheduler)

	service := &WebhookService{
		storage:       storage,
		scheduler:     scheduler,
		intakeTimeout: 400 * time.Millisecond,
		log:           discardLogger(),
		now:           func() time.Time { return fixedNow },
	}

	return service, storage, scheduler
}

func strPtr(s string) *string { return &s }

func validRequest(id string) models.WebhookRequest {
	amount := decimal.RequireFromString("150.50")
	return models.WebhookRequest{
		TransactionID:      strPtr(id),
		SourceAccount:      strPtr("a"),
		DestinationAccount: strPtr("b"),
		Amount:             &amount,
		Currency:           strPtr("usd"),
	}
}

func TestWebhookService_Accept_NewTransaction(t *testing.T) {
	service, storage, scheduler := setupWebhookService()
	ctx := context.Background()

	stored := &models.Transaction{TransactionID: "txn_1", Status: models.StatusReceived, Currency: "USD"}

	storage.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.TransactionID == "txn_1" &&
			tx.Status == models.StatusReceived &&
			tx.Currency == "USD" &&
			tx.ReceivedAt.Equal(fixedNow)
	})).Return(stored, true, nil)
	scheduler.On("Schedule", "txn_1").Return(true)

	resp, err := service.Accept(ctx, validRequest("txn_1"))

	require.NoError(t, err)
	assert.Equal(t, "txn_1", resp.TransactionID)
	assert.Equal(t, models.StatusReceived, resp.Status)

	storage.AssertExpectations(t)
	scheduler.AssertExpectations(t)
}

func TestWebhookService_Accept_Duplicate(t *testing.T) {
	service, storage, scheduler := setupWebhookService()
	ctx := context.Background()

	existing := &models.Transaction{TransactionID: "txn_2", Status: models.StatusProcessed}

	storage.On("InsertIfAbsent", mock.Anything, mock.AnythingOfType("*models.Transaction")).Return(existing, false, nil)
	scheduler.On("Schedule", "txn_2").Return(true)

	resp, err := service.Accept(ctx, validRequest("txn_2"))

	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, resp.Status)

	storage.AssertExpectations(t)
	scheduler.AssertExpectations(t)
}

func TestWebhookService_Accept_ValidationError(t *testing.T) {
	service, storage, scheduler := setupWebhookService()

	req := validRequest("txn_3")
	req.Amount = nil

	resp, err := service.Accept(context.Background(), req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, custom_err.ErrInvalidInput)
	assert.ErrorIs(t, err, custom_err.ErrInvalidAmount)

	var vErr *custom_err.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)

	storage.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything)
	scheduler.AssertNotCalled(t, "Schedule", mock.Anything)
}

func TestWebhookService_Accept_StorageError(t *testing.T) {
	service, storage, scheduler := setupWebhookService()

	storage.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(nil, false, errors.New("db down"))

	resp, err := service.Accept(context.Background(), validRequest("txn_4"))

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "service.Accept")
	assert.NotErrorIs(t, err, custom_err.ErrInvalidInput)

	scheduler.AssertNotCalled(t, "Schedule", mock.Anything)
}

func TestWebhookService_Accept_IntakeTimeout(t *testing.T) {
	service, storage, scheduler := setupWebhookService()
	service.intakeTimeout = 20 * time.Millisecond

	storage.On("InsertIfAbsent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, false, context.DeadlineExceeded)

	start := time.Now()
	resp, err := service.Accept(context.Background(), validRequest("txn_5"))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	scheduler.AssertNotCalled(t, "Schedule", mock.Anything)
}

func TestWebhookService_Accept_ScheduleRejected(t *testing.T) {
	service, storage, scheduler := setupWebhookService()

	stored := &models.Transaction{TransactionID: "txn_6", Status: models.StatusReceived}
	storage.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(stored, true, nil)
	scheduler.On("Schedule", "txn_6").Return(false)

	resp, err := service.Accept(context.Background(), validRequest("txn_6"))

	require.NoError(t, err, "the record is durable, the webhook is still acknowledged")
	assert.Equal(t, models.StatusReceived, resp.Status)
}

func TestWebhookService_GetTransaction_NotFound(t *testing.T) {
	service, storage, _ := setupWebhookService()
	ctx := context.Background()

	storage.On("GetByID", ctx, "missing").Return(nil, custom_err.ErrNotFound)

	tx, err := service.GetTransaction(ctx, "missing")

	assert.Nil(t, tx)
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
	storage.AssertExpectations(t)
}

func TestWebhookService_ListTransactions_NormalizesParams(t *testing.T) {
	service, storage, _ := setupWebhookService()
	ctx := context.Background()

	storage.On("List", ctx, models.ListParams{Limit: models.DefaultListLimit, Offset: 0}).
		Return([]*models.Transaction{{TransactionID: "txn_1"}}, nil)

	txs, err := service.ListTransactions(ctx, models.ListParams{Limit: 0, Offset: -1})

	require.NoError(t, err)
	assert.Len(t, txs, 1)
	storage.AssertExpectations(t)
}
