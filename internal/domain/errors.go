package domain

import "errors"

var (
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrStockAccountNotFound = errors.New("stock account not found")
	ErrSessionNotFound      = errors.New("auto purchase session not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMessageNotFound      = errors.New("chat message not found")
	ErrUnknownServiceType   = errors.New("unknown service type")
	ErrAmountMismatch       = errors.New("amount fields are inconsistent")
	ErrMissingGamepass      = errors.New("transaction has no usable gamepass data")
	ErrNotFulfillable       = errors.New("transaction is not eligible for automated fulfillment")
	ErrNoHold               = errors.New("transaction is not on hold")
	ErrInvalidCookie        = errors.New("stock account cookie rejected by roblox")

	// ErrNoStockAccount means no active account can cover the amount right now.
	// The transaction stays pending for a later sweep.
	ErrNoStockAccount = errors.New("no stock account with sufficient robux")
	// ErrAllocationVoid means the chosen account failed re-validation or lost a
	// reservation race. The caller must select again.
	ErrAllocationVoid      = errors.New("stock allocation voided")
	ErrInsufficientReserve = errors.New("reserved robux lower than debit amount")

	ErrSweepRunning = errors.New("auto purchase sweep already running")
	ErrQueueFull    = errors.New("fulfillment queue is full")

	ErrRateLimited  = errors.New("too many messages, slow down")
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrDuplicateInFlight means an identical message is still being stored.
	ErrDuplicateInFlight = errors.New("identical message is still being sent")
)
