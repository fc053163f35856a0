package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type LedgerEntry struct {
	TotalSpent        decimal.Decimal
	ResellerTier      string
	ResellerExpiresAt time.Time
	Credits           int
}

type UserLedger struct {
	mu       sync.Mutex
	users    map[string]*LedgerEntry
	credited map[string]bool
}

func NewUserLedger(userIDs ...string) *UserLedger {
	l := &UserLedger{users: make(map[string]*LedgerEntry), credited: make(map[string]bool)}
	for _, id := range userIDs {
		l.users[id] = &LedgerEntry{}
	}
	return l
}

func (l *UserLedger) CreditSpending(_ context.Context, userID, correlationID string, amount decimal.Decimal) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return false, domain.ErrUserNotFound
	}
	if l.credited[correlationID] {
		return false, nil
	}
	l.credited[correlationID] = true
	u.TotalSpent = u.TotalSpent.Add(amount)
	u.Credits++
	return true, nil
}

func (l *UserLedger) ActivateResellerTier(_ context.Context, userID, tier string, expiresAt time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	previous := u.ResellerTier
	u.ResellerTier = tier
	u.ResellerExpiresAt = expiresAt
	return previous, nil
}

func (l *UserLedger) Entry(userID string) (LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return LedgerEntry{}, false
	}
	return *u, true
}
