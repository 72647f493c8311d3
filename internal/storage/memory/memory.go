// Package memory implements storage.Storage in process memory. It backs the
// "memory" storage driver and the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gw-transaction-webhook/internal/custom_err"
	"gw-transaction-webhook/internal/models"
	"gw-transaction-webhook/internal/storage"
)

type MemoryStorage struct {
	mu           sync.RWMutex
	transactions map[string]*models.Transaction
	err          error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		transactions: make(map[string]*models.Transaction),
	}
}

var _ storage.Storage = (*MemoryStorage)(nil)

// WithError makes every subsequent call fail with err. Passing nil clears it.
func (s *MemoryStorage) WithError(err error) *MemoryStorage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *MemoryStorage) InsertIfAbsent(ctx context.Context, tx *models.Transaction) (*models.Transaction, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, false, s.err
	}
	if existing, ok := s.transactions[tx.TransactionID]; ok {
		return clone(existing), false, nil
	}

	stored := clone(tx)
	s.transactions[tx.TransactionID] = stored
	return clone(stored), true, nil
}

func (s *MemoryStorage) TransitionStatus(
	ctx context.Context,
	transactionID string,
	from, to models.TransactionStatus,
	at time.Time,
) (*models.Transaction, bool, error) {
	const op = "memory.TransitionStatus"

	if !from.CanTransitionTo(to) {
		return nil, false, fmt.Errorf("%s: %s -> %s: %w", op, from, to, custom_err.ErrInvalidTransition)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, false, s.err
	}
	tx, ok := s.transactions[transactionID]
	if !ok || tx.Status != from {
		return nil, false, nil
	}

	tx.Status = to
	tx.UpdatedAt = at
	if to.IsTerminal() {
		processedAt := at
		tx.ProcessedAt = &processedAt
	}
	return clone(tx), true, nil
}

func (s *MemoryStorage) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, custom_err.ErrNotFound
	}
	return clone(tx), nil
}

func (s *MemoryStorage) List(ctx context.Context, params models.ListParams) ([]*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params = params.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}

	all := make([]*models.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		all = append(all, tx)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ReceivedAt.Equal(all[j].ReceivedAt) {
			return all[i].TransactionID < all[j].TransactionID
		}
		return all[i].ReceivedAt.After(all[j].ReceivedAt)
	})

	result := make([]*models.Transaction, 0, params.Limit)
	for i := params.Offset; i < len(all) && len(result) < params.Limit; i++ {
		result = append(result, clone(all[i]))
	}
	return result, nil
}

// Len returns the number of stored records.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions)
}

func (s *MemoryStorage) Close() error {
	return nil
}

func clone(tx *models.Transaction) *models.Transaction {
	c := *tx
	if tx.ProcessedAt != nil {
		processedAt := *tx.ProcessedAt
		c.ProcessedAt = &processedAt
	}
	return &c
}
