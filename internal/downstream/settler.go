package downstream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
)

// Settler внешняя система, подтверждающая транзакцию
type Settler interface {
	Settle(ctx context.Context, tx *models.Transaction) error
}

// Simulated имитирует вызов внешнего API: ждет latency и с вероятностью
// failureRate возвращает ErrDownstreamFailure.
type Simulated struct {
	latency     time.Duration
	failureRate float64
	roll        func() float64
	log         *slog.Logger
}

func NewSimulated(latency time.Duration, failureRate float64, log *slog.Logger) *Simulated {
	return &Simulated{
		latency:     latency,
		failureRate: failureRate,
		roll:        rand.Float64,
		log:         log,
	}
}

func (s *Simulated) Settle(ctx context.Context, tx *models.Transaction) error {
	const op = "downstream.Settle"

	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}

	if s.failureRate > 0 && s.roll() < s.failureRate {
		s.log.Warn("simulated downstream rejected transaction",
			slog.String("op", op),
			slog.String("transaction_id", tx.TransactionID))
		return fmt.Errorf("%s: %w", op, custom_err.ErrDownstreamFailure)
	}

	s.log.Debug("simulated downstream settled transaction",
		slog.String("op", op),
		slog.String("transaction_id", tx.TransactionID))
	return nil
}
