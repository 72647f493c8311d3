package service

import (
	"context"
	"errors"
	"fmt"
	"gw-transaction-webhook/internal/downstream"
	"gw-transaction-webhook/internal/kafka"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/storage"
	"log/slog"
	"time"
)

// Finalizer переводит транзакцию RECEIVED -> PROCESSING -> PROCESSED | FAILED.
// Каждый шаг выполняется условным обновлением, поэтому повторный или
// параллельный вызов для того же transaction_id ничего не меняет.
type Finalizer struct {
	storage        storage.Storage
	settler        downstream.Settler
	producer       kafka.Producer
	publishTimeout time.Duration
	log            *slog.Logger
	now            func() time.Time
}

func NewFinalizer(
	storage storage.Storage,
	settler downstream.Settler,
	producer kafka.Producer,
	log *slog.Logger,
) *Finalizer {
	return &Finalizer{
		storage:        storage,
		settler:        settler,
		producer:       producer,
		publishTimeout: 5 * time.Second,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Finalize returns the record in its terminal state, or nil when another
// finalization already took the record out of RECEIVED.
func (f *Finalizer) Finalize(ctx context.Context, transactionID string) (*models.Transaction, error) {
	const op = "service.Finalize"

	log := f.log.With(slog.String("op", op), slog.String("transaction_id", transactionID))

	processing, applied, err := f.storage.TransitionStatus(ctx, transactionID, models.StatusReceived, models.StatusProcessing, f.now())
	if err != nil {
		log.Error("failed to start finalization", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Debug("transaction is not in RECEIVED, skipping")
		return nil, nil
	}

	log.Info("processing transaction")

	next := models.StatusProcessed
	reason := ""
	if err := f.settler.Settle(ctx, processing); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn("finalization abandoned", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		next = models.StatusFailed
		reason = err.Error()
		log.Warn("downstream settlement failed", slog.String("error", reason))
	}

	final, applied, err := f.storage.TransitionStatus(ctx, transactionID, models.StatusProcessing, next, f.now())
	if err != nil {
		log.Error("failed to complete finalization",
			slog.String("status", string(next)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Warn("transaction left PROCESSING concurrently")
		return nil, nil
	}

	log.Info("transaction finalized", slog.String("status", string(final.Status)))

	f.publish(ctx, final, reason)
	return final, nil
}

func (f *Finalizer) publish(ctx context.Context, tx *models.Transaction, reason string) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.publishTimeout)
	defer cancel()

	event := models.NewTransactionFinalizedEvent(tx, reason)
	if err := f.producer.SendTransactionFinalizedEvent(pubCtx, event); err != nil {
		f.log.Error("failed to publish finalized event",
			slog.String("transaction_id", tx.TransactionID),
			slog.String("event_id", event.EventID.String()),
			slog.String("error", err.Error()))
	}
}
