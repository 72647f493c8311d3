package storage

import (
	"context"
	"time"

	"gw-transaction-webhook/internal/models"
)

// Storage хранилище транзакций. Все мутации атомарны на стороне хранилища:
// вставка только при отсутствии ключа и переход статуса с проверкой
// ожидаемого предыдущего значения.
type Storage interface {
	// InsertIfAbsent сохраняет запись, если transaction_id еще не встречался.
	// Возвращает актуальную запись и признак того, что она была создана.
	InsertIfAbsent(ctx context.Context, tx *models.Transaction) (*models.Transaction, bool, error)

	// TransitionStatus переводит запись из from в to. Если запись не найдена
	// или ее статус отличается от from, ничего не меняется и applied=false.
	// Для терминального to проставляется processed_at = at.
	TransitionStatus(ctx context.Context, transactionID string, from, to models.TransactionStatus, at time.Time) (*models.Transaction, bool, error)

	GetByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	List(ctx context.Context, params models.ListParams) ([]*models.Transaction, error)
	Close() error
}
