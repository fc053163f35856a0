package domain

import (
	"context"
	"fmt"
	"time"
)

type StockAccountStatus string

const (
	StockAccountActive   StockAccountStatus = "active"
	StockAccountInactive StockAccountStatus = "inactive"
	StockAccountInvalid  StockAccountStatus = "invalid"
)

// StockAccount is a marketplace account used as a robux source. Robux is a
// cached balance and is only authoritative right after a live refresh.
type StockAccount struct {
	ID            string
	Username      string
	RobloxCookie  string
	Robux         int64
	ReservedRobux int64
	Status        StockAccountStatus
	LastChecked   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Available is the balance not held by an in-flight purchase.
func (a *StockAccount) Available() int64 {
	return a.Robux - a.ReservedRobux
}

// String never includes the cookie.
func (a *StockAccount) String() string {
	return fmt.Sprintf("StockAccount{id=%s username=%s robux=%d reserved=%d status=%s}",
		a.ID, a.Username, a.Robux, a.ReservedRobux, a.Status)
}

func (a StockAccount) Snapshot() StockSnapshot {
	return StockSnapshot{ID: a.ID, Username: a.Username, Robux: a.Robux}
}

type StockAccountRepository interface {
	Create(ctx context.Context, account *StockAccount) error
	Update(ctx context.Context, account *StockAccount) error
	GetByID(ctx context.Context, id string) (*StockAccount, error)
	ListActive(ctx context.Context) ([]*StockAccount, error)
	// FindSmallestSufficient returns the active account with the smallest
	// available balance that still covers required, or ErrNoStockAccount.
	FindSmallestSufficient(ctx context.Context, required int64, exclude []string) (*StockAccount, error)
	UpdateBalance(ctx context.Context, id string, robux int64, checkedAt time.Time) error
	// Reserve holds amount on the account only if it is still available.
	// A lost race returns ErrAllocationVoid.
	Reserve(ctx context.Context, id string, amount int64) error
	Release(ctx context.Context, id string, amount int64) error
	// Debit spends a previously reserved amount.
	Debit(ctx context.Context, id string, amount int64, at time.Time) error
}

// BalanceChecker reads the live robux balance of an account session.
type BalanceChecker interface {
	FetchRobux(ctx context.Context, cookie string) (int64, error)
}

// StockEvent announces an inventory change that may unblock waiting purchases.
type StockEvent struct {
	AccountID string `json:"account_id"`
	Action    string `json:"action"`
	Actor     string `json:"actor"`
}

type StockEventSink interface {
	StockChanged(ctx context.Context, ev StockEvent) error
}
