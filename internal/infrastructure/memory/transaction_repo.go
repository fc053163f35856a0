// Package memory holds process-local implementations of the domain stores,
// used by tests and by the "memory" storage mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type TransactionRepository struct {
	mu   sync.Mutex
	rows map[string]*domain.Transaction
	now  func() time.Time
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{rows: make(map[string]*domain.Transaction), now: time.Now}
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	c.StatusHistory = append([]domain.StatusHistoryEntry(nil), t.StatusHistory...)
	if t.HeldReservation != nil {
		r := *t.HeldReservation
		c.HeldReservation = &r
	}
	return &c
}

func (r *TransactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.PrepareNew(r.now())
	r.rows[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *TransactionRepository) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

func (r *TransactionRepository) FindByCorrelationID(_ context.Context, correlationID string) ([]*domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool { return t.CorrelationID == correlationID }), nil
}

func (r *TransactionRepository) FindAutoFulfillable(_ context.Context) ([]*domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool {
		return t.ServiceCategory == domain.CategoryRobux5Hari &&
			t.PaymentStatus == domain.PaymentSettlement &&
			t.OrderStatus == domain.OrderPending &&
			t.HoldReason == ""
	}), nil
}

func (r *TransactionRepository) ApplyStatus(_ context.Context, id string, upd domain.StatusUpdate) (*domain.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	previous := cloneTransaction(stored)
	current := cloneTransaction(stored)
	changed := upd.Apply(current, r.now())
	if changed {
		r.rows[id] = cloneTransaction(current)
	}
	return &domain.StatusChange{Previous: *previous, Current: current, Changed: changed}, nil
}

func (r *TransactionRepository) filter(keep func(*domain.Transaction) bool) []*domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Transaction, 0)
	for _, t := range r.rows {
		if keep(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
