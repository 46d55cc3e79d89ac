package memory

import (
	"context"
	"sync"

	"github.com/predictpesa/predictpesa-api/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository.
type TransactionRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*transaction.Transaction
}

// NewTransactionRepository returns an empty repository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{byUser: make(map[string][]*transaction.Transaction)}
}

func (r *TransactionRepository) Create(_ context.Context, t *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.byUser[t.UserID] = append(r.byUser[t.UserID], &c)
	return nil
}

// ListByUser returns userID's transactions in creation order.
func (r *TransactionRepository) ListByUser(_ context.Context, userID string) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byUser[userID]
	out := make([]*transaction.Transaction, len(stored))
	for i, t := range stored {
		c := *t
		out[i] = &c
	}
	return out, nil
}
