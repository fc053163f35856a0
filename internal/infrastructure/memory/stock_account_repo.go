package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type StockAccountRepository struct {
	mu   sync.Mutex
	rows map[string]*domain.StockAccount
}

func NewStockAccountRepository() *StockAccountRepository {
	return &StockAccountRepository{rows: make(map[string]*domain.StockAccount)}
}

func (r *StockAccountRepository) Create(_ context.Context, account *domain.StockAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *account
	r.rows[account.ID] = &c
	return nil
}

func (r *StockAccountRepository) Update(_ context.Context, account *domain.StockAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[account.ID]
	if !ok {
		return domain.ErrStockAccountNotFound
	}
	reserved := stored.ReservedRobux
	c := *account
	c.ReservedRobux = reserved
	c.UpdatedAt = time.Now()
	r.rows[account.ID] = &c
	return nil
}

func (r *StockAccountRepository) GetByID(_ context.Context, id string) (*domain.StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrStockAccountNotFound
	}
	c := *a
	return &c, nil
}

func (r *StockAccountRepository) ListActive(_ context.Context) ([]*domain.StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockAccount, 0, len(r.rows))
	for _, a := range r.rows {
		if a.Status == domain.StockAccountActive {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Robux < out[j].Robux })
	return out, nil
}

func (r *StockAccountRepository) FindSmallestSufficient(_ context.Context, required int64, exclude []string) (*domain.StockAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var best *domain.StockAccount
	for _, a := range r.rows {
		if _, excluded := skip[a.ID]; excluded {
			continue
		}
		if a.Status != domain.StockAccountActive || a.Available() < required {
			continue
		}
		if best == nil || a.Available() < best.Available() ||
			(a.Available() == best.Available() && a.ID < best.ID) {
			best = a
		}
	}
	if best == nil {
		return nil, domain.ErrNoStockAccount
	}
	c := *best
	return &c, nil
}

func (r *StockAccountRepository) UpdateBalance(_ context.Context, id string, robux int64, checkedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return domain.ErrStockAccountNotFound
	}
	a.Robux = robux
	a.LastChecked = checkedAt
	return nil
}

func (r *StockAccountRepository) Reserve(_ context.Context, id string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok || a.Status != domain.StockAccountActive || a.Available() < amount {
		return domain.ErrAllocationVoid
	}
	a.ReservedRobux += amount
	return nil
}

func (r *StockAccountRepository) Release(_ context.Context, id string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return domain.ErrStockAccountNotFound
	}
	a.ReservedRobux -= amount
	if a.ReservedRobux < 0 {
		a.ReservedRobux = 0
	}
	return nil
}

func (r *StockAccountRepository) Debit(_ context.Context, id string, amount int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return domain.ErrStockAccountNotFound
	}
	if a.ReservedRobux < amount {
		return domain.ErrInsufficientReserve
	}
	a.Robux -= amount
	a.ReservedRobux -= amount
	a.LastChecked = at
	return nil
}
