package domain

import (
	"context"
	"errors"
	"fmt"
)

type PurchaseRequest struct {
	Cookie        string
	ProductID     string
	ProductName   string
	ExpectedPrice int64
}

// PurchaseDriver buys one gamepass with the given account session. It
// persists nothing.
type PurchaseDriver interface {
	Purchase(ctx context.Context, req PurchaseRequest) error
}

type PurchaseErrorKind string

const (
	KindPriceMismatch     PurchaseErrorKind = "price_mismatch"
	KindElementTimeout    PurchaseErrorKind = "element_timeout"
	KindNavigation        PurchaseErrorKind = "navigation"
	KindLaunch            PurchaseErrorKind = "launch"
	KindPossiblyCommitted PurchaseErrorKind = "possibly_committed"
)

type PurchaseError struct {
	Kind     PurchaseErrorKind
	Expected int64
	Actual   int64
	Err      error
}

func (e *PurchaseError) Error() string {
	switch e.Kind {
	case KindPriceMismatch:
		return fmt.Sprintf("price mismatch: expected %d, page shows %d", e.Expected, e.Actual)
	case KindPossiblyCommitted:
		return fmt.Sprintf("purchase possibly committed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *PurchaseError) Unwrap() error { return e.Err }

// NeedsOperator reports failures that must not be retried automatically.
func (e *PurchaseError) NeedsOperator() bool {
	return e.Kind == KindPriceMismatch || e.Kind == KindPossiblyCommitted
}

func AsPurchaseError(err error) (*PurchaseError, bool) {
	var pe *PurchaseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
