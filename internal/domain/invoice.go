package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
)

const invoiceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var invoiceSuffix = func() func() string {
	gen, err := nanoid.CustomASCII(invoiceAlphabet, 6)
	if err != nil {
		panic(fmt.Sprintf("invoice id generator: %v", err))
	}
	return gen
}()

// NewInvoiceID returns an invoice number of the form INV-YYYYMMDD-XXXXXX.
func NewInvoiceID(now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), invoiceSuffix())
}

// PrepareNew fills the identifiers a storefront row may arrive without. A
// single-line checkout uses its invoice number as the gateway order id.
func (t *Transaction) PrepareNew(now time.Time) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.InvoiceID == "" {
		t.InvoiceID = NewInvoiceID(now)
	}
	if t.CorrelationID == "" {
		t.CorrelationID = t.InvoiceID
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
}
