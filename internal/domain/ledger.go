package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UserLedger is the storefront-owned slice of the buyer profile touched on settlement.
type UserLedger interface {
	// CreditSpending adds amount to the user's lifetime spend at most once per
	// gateway order. It reports false when correlationID was already credited.
	CreditSpending(ctx context.Context, userID, correlationID string, amount decimal.Decimal) (bool, error)
	// ActivateResellerTier returns the tier the user had before activation.
	ActivateResellerTier(ctx context.Context, userID, tier string, expiresAt time.Time) (string, error)
}

type InvoiceLine struct {
	InvoiceID   string
	Description string
	Quantity    int64
	FinalAmount decimal.Decimal
}

type Invoice struct {
	Email         string
	CorrelationID string
	Gateway       Gateway
	Lines         []InvoiceLine
	Total         decimal.Decimal
	PaidAt        time.Time
}

type Mailer interface {
	SendInvoice(ctx context.Context, inv Invoice) error
}
