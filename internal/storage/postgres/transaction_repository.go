package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// PgxPool подмножество pgxpool.Pool, которое нужно репозиторию
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

type PgTransactionRepository struct {
	db PgxPool
}

func NewTransactionRepository(db PgxPool) *PgTransactionRepository {
	return &PgTransactionRepository{db: db}
}

var _ storage.Storage = (*PgTransactionRepository)(nil)

func (r *PgTransactionRepository) InsertIfAbsent(ctx context.Context, tx *models.Transaction) (*models.Transaction, bool, error) {
	const op = "storage.InsertIfAbsent"

	row := r.db.QueryRow(ctx, storage.InsertTransactionIfAbsentQuery,
		tx.TransactionID,
		tx.SourceAccount,
		tx.DestinationAccount,
		tx.Amount.String(),
		tx.Currency,
		string(tx.Status),
		tx.ReceivedAt,
	)

	created, err := scanTransaction(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapErr(op, err)
	}

	// ON CONFLICT DO NOTHING: запись уже есть, возвращаем ее как есть
	existing, err := r.GetByID(ctx, tx.TransactionID)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return existing, false, nil
}

func (r *PgTransactionRepository) TransitionStatus(
	ctx context.Context,
	transactionID string,
	from, to models.TransactionStatus,
	at time.Time,
) (*models.Transaction, bool, error) {
	const op = "storage.TransitionStatus"

	if !from.CanTransitionTo(to) {
		return nil, false, fmt.Errorf("%s: %s -> %s: %w", op, from, to, custom_err.ErrInvalidTransition)
	}

	row := r.db.QueryRow(ctx, storage.TransitionTransactionStatusQuery,
		transactionID,
		string(from),
		string(to),
		at,
		to.IsTerminal(),
	)

	updated, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, wrapErr(op, err)
	}
	return updated, true, nil
}

func (r *PgTransactionRepository) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	const op = "storage.GetByID"

	tx, err := scanTransaction(r.db.QueryRow(ctx, storage.GetTransactionByIDQuery, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, wrapErr(op, err)
	}
	return tx, nil
}

func (r *PgTransactionRepository) List(ctx context.Context, params models.ListParams) ([]*models.Transaction, error) {
	const op = "storage.List"

	params = params.Normalize()
	rows, err := r.db.Query(ctx, storage.ListTransactionsQuery, params.Limit, params.Offset)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	transactions := make([]*models.Transaction, 0, params.Limit)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return transactions, nil
}

func (r *PgTransactionRepository) Close() error {
	r.db.Close()
	return nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx     models.Transaction
		amount string
		status string
	)
	err := row.Scan(
		&tx.TransactionID,
		&tx.SourceAccount,
		&tx.DestinationAccount,
		&amount,
		&tx.Currency,
		&status,
		&tx.ReceivedAt,
		&tx.ProcessedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	tx.Status = models.TransactionStatus(status)
	return &tx, nil
}

func wrapErr(op string, err error) error {
	if pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, custom_err.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
