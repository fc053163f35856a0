package memory

import (
	"context"
	"sync"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type AutoPurchaseProgressRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.AutoPurchaseProgress
	saves    int
}

func NewAutoPurchaseProgressRepository() *AutoPurchaseProgressRepository {
	return &AutoPurchaseProgressRepository{sessions: make(map[string]*domain.AutoPurchaseProgress)}
}

func cloneProgress(p *domain.AutoPurchaseProgress) *domain.AutoPurchaseProgress {
	c := *p
	c.Transactions = append([]domain.ProgressItem(nil), p.Transactions...)
	c.StockAccounts = append([]domain.StockSnapshot(nil), p.StockAccounts...)
	if p.EndTime != nil {
		end := *p.EndTime
		c.EndTime = &end
	}
	return &c
}

func (r *AutoPurchaseProgressRepository) Create(_ context.Context, p *domain.AutoPurchaseProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[p.SessionID] = cloneProgress(p)
	r.saves++
	return nil
}

func (r *AutoPurchaseProgressRepository) Save(_ context.Context, p *domain.AutoPurchaseProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[p.SessionID] = cloneProgress(p)
	r.saves++
	return nil
}

func (r *AutoPurchaseProgressRepository) GetBySessionID(_ context.Context, sessionID string) (*domain.AutoPurchaseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneProgress(p), nil
}

// Saves counts every persisted write, creation included.
func (r *AutoPurchaseProgressRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
