package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
)

// VoidedAllocation names the account whose allocation was voided so the
// caller can exclude it from the next selection.
type VoidedAllocation struct {
	AccountID string
	Reason    string
}

func (e *VoidedAllocation) Error() string {
	return fmt.Sprintf("allocation on %s voided: %s", e.AccountID, e.Reason)
}

func (e *VoidedAllocation) Unwrap() error { return domain.ErrAllocationVoid }

// Allocator picks and reserves the stock account for one purchase.
type Allocator struct {
	Accounts domain.StockAccountRepository
	Balances domain.BalanceChecker
	Metrics  *metrics.FulfillmentMetrics

	now func() time.Time
}

func NewAllocator(accounts domain.StockAccountRepository, balances domain.BalanceChecker, m *metrics.FulfillmentMetrics) *Allocator {
	return &Allocator{Accounts: accounts, Balances: balances, Metrics: m, now: time.Now}
}

// Allocate returns the active account with the smallest available balance
// that still covers required after a live refresh, with required already
// reserved on it.
func (a *Allocator) Allocate(ctx context.Context, required int64, exclude ...string) (*domain.StockAccount, error) {
	candidate, err := a.Accounts.FindSmallestSufficient(ctx, required, exclude)
	if err != nil {
		if errors.Is(err, domain.ErrNoStockAccount) {
			a.Metrics.RecordAllocation("no_stock")
		}
		return nil, err
	}

	live, err := a.refresh(ctx, candidate)
	if err != nil {
		a.Metrics.RecordAllocation("void")
		return nil, &VoidedAllocation{AccountID: candidate.ID, Reason: err.Error()}
	}
	if live-candidate.ReservedRobux < required {
		log.Printf("⚠️  [ALLOCATOR] %s has %d robux live (%d reserved), needs %d",
			candidate.Username, live, candidate.ReservedRobux, required)
		a.Metrics.RecordAllocation("void")
		return nil, &VoidedAllocation{
			AccountID: candidate.ID,
			Reason:    fmt.Sprintf("live balance %d below required %d", live-candidate.ReservedRobux, required),
		}
	}

	if err := a.Accounts.Reserve(ctx, candidate.ID, required); err != nil {
		a.Metrics.RecordAllocation("void")
		if errors.Is(err, domain.ErrAllocationVoid) {
			return nil, &VoidedAllocation{AccountID: candidate.ID, Reason: "reservation lost to a concurrent purchase"}
		}
		return nil, fmt.Errorf("reserve %d on %s: %w", required, candidate.ID, err)
	}

	candidate.Robux = live
	candidate.ReservedRobux += required
	a.Metrics.RecordAllocation("reserved")
	return candidate, nil
}

// Refresh reads the live balance of account and persists it. A rejected
// cookie marks the account invalid.
func (a *Allocator) Refresh(ctx context.Context, account *domain.StockAccount) error {
	live, err := a.refresh(ctx, account)
	if err != nil {
		return err
	}
	account.Robux = live
	return nil
}

// RefreshAll refreshes every active account and returns the ones still
// active. Per-account failures are logged and skipped.
func (a *Allocator) RefreshAll(ctx context.Context) ([]*domain.StockAccount, error) {
	accounts, err := a.Accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active stock accounts: %w", err)
	}
	out := make([]*domain.StockAccount, 0, len(accounts))
	for _, acc := range accounts {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if err := a.Refresh(ctx, acc); err != nil {
			slog.Warn("stock balance refresh failed", "account", acc.Username, "error", err)
			if errors.Is(err, domain.ErrInvalidCookie) {
				continue
			}
		}
		out = append(out, acc)
	}
	return out, nil
}

func (a *Allocator) refresh(ctx context.Context, account *domain.StockAccount) (int64, error) {
	live, err := a.Balances.FetchRobux(ctx, account.RobloxCookie)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCookie) {
			a.invalidate(ctx, account)
		}
		return 0, fmt.Errorf("fetch balance of %s: %w", account.Username, err)
	}
	now := a.now()
	if err := a.Accounts.UpdateBalance(ctx, account.ID, live, now); err != nil {
		return 0, fmt.Errorf("store balance of %s: %w", account.Username, err)
	}
	account.LastChecked = now
	return live, nil
}

func (a *Allocator) invalidate(ctx context.Context, account *domain.StockAccount) {
	log.Printf("🔒 [ALLOCATOR] Cookie of %s rejected, marking account invalid", account.Username)
	account.Status = domain.StockAccountInvalid
	if err := a.Accounts.Update(ctx, account); err != nil {
		slog.Error("mark stock account invalid failed", "account", account.Username, "error", err)
	}
}
