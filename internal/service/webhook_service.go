package service

import (
	"context"
	"fmt"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/storage"
	"log/slog"
	"time"
)

type Webhook interface {
	Accept(ctx context.Context, req models.WebhookRequest) (*models.WebhookResponse, error)
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, params models.ListParams) ([]*models.Transaction, error)
}

// TaskScheduler откладывает финализацию транзакции. Schedule не блокируется.
type TaskScheduler interface {
	Schedule(transactionID string) bool
}

type WebhookService struct {
	storage       storage.Storage
	scheduler     TaskScheduler
	intakeTimeout time.Duration
	log           *slog.Logger
	now           func() time.Time
}

func NewWebhookService(
	storage storage.Storage,
	scheduler TaskScheduler,
	intakeTimeout time.Duration,
	log *slog.Logger,
) *WebhookService {
	return &WebhookService{
		storage:       storage,
		scheduler:     scheduler,
		intakeTimeout: intakeTimeout,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *WebhookService) Accept(ctx context.Context, req models.WebhookRequest) (*models.WebhookResponse, error) {
	const op = "service.Accept"

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx := req.ToTransaction(s.now())

	if s.intakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.intakeTimeout)
		defer cancel()
	}

	stored, created, err := s.storage.InsertIfAbsent(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to store transaction: %w", op, err)
	}

	if created {
		s.log.Info("transaction received",
			slog.String("op", op),
			slog.String("transaction_id", stored.TransactionID),
			slog.String("amount", stored.Amount.String()),
			slog.String("currency", stored.Currency))
	} else {
		s.log.Info("duplicate webhook received",
			slog.String("op", op),
			slog.String("transaction_id", stored.TransactionID),
			slog.String("status", string(stored.Status)))
	}

	// повторное планирование безопасно: финализатор идемпотентен
	if !s.scheduler.Schedule(stored.TransactionID) {
		s.log.Error("finalization not scheduled",
			slog.String("op", op),
			slog.String("transaction_id", stored.TransactionID))
	}

	return &models.WebhookResponse{
		TransactionID: stored.TransactionID,
		Status:        stored.Status,
	}, nil
}

func (s *WebhookService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	const op = "service.GetTransaction"

	tx, err := s.storage.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tx, nil
}

func (s *WebhookService) ListTransactions(ctx context.Context, params models.ListParams) ([]*models.Transaction, error) {
	const op = "service.ListTransactions"

	transactions, err := s.storage.List(ctx, params.Normalize())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return transactions, nil
}
