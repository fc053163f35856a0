package domain

import "context"

type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// FindByCorrelationID returns every row of one gateway order, oldest first.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]*Transaction, error)
	// FindAutoFulfillable returns settled, pending, unheld robux_5_hari rows
	// oldest first. Rows with broken gamepass data are included so the
	// caller can account for them.
	FindAutoFulfillable(ctx context.Context) ([]*Transaction, error)
	// ApplyStatus applies upd under a row lock and appends the history entry
	// in the same database transaction.
	ApplyStatus(ctx context.Context, id string, upd StatusUpdate) (*StatusChange, error)
}
