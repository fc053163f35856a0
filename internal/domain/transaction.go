package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceRobux           ServiceType = "robux"
	ServiceGamepass        ServiceType = "gamepass"
	ServiceJoki            ServiceType = "joki"
	ServiceResellerPackage ServiceType = "reseller_package"
)

// CategoryRobux5Hari is the only category fulfilled by the purchase bot.
const CategoryRobux5Hari = "robux_5_hari"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSettlement PaymentStatus = "settlement"
	PaymentExpired    PaymentStatus = "expired"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentFailed     PaymentStatus = "failed"
)

type OrderStatus string

const (
	OrderWaitingPayment OrderStatus = "waiting_payment"
	OrderPending        OrderStatus = "pending"
	OrderProcessing     OrderStatus = "processing"
	OrderInProgress     OrderStatus = "in_progress"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderFailed         OrderStatus = "failed"
)

type Gateway string

const (
	GatewayMidtrans Gateway = "midtrans"
	GatewayDuitku   Gateway = "duitku"
)

// Reservation is an amount of robux reserved on one stock account.
type Reservation struct {
	AccountID string
	Robux     int64
}

// HoldResolution is the operator's finding when releasing a hold.
type HoldResolution string

const (
	// HoldRetry: nothing was bought; the reservation is released and the
	// transaction goes back to the sweep.
	HoldRetry HoldResolution = "retry"
	// HoldPurchased: the gamepass was bought; the transaction is completed
	// and the account balance is re-read.
	HoldPurchased HoldResolution = "purchased"
)

type StatusHistoryEntry struct {
	Status    OrderStatus
	Timestamp time.Time
	Notes     string
	UpdatedBy string
}

type Transaction struct {
	ID             string
	InvoiceID      string
	UserID         string
	Email          string
	RobloxUsername string

	Gateway       Gateway
	CorrelationID string

	ServiceType     ServiceType
	ServiceCategory string
	Details         ServiceDetails

	Quantity           int64
	UnitPrice          decimal.Decimal
	TotalAmount        decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	FinalAmount        decimal.Decimal

	PaymentStatus PaymentStatus
	OrderStatus   OrderStatus
	HoldReason    string
	// HeldReservation is stock still reserved while the hold is open.
	HeldReservation *Reservation
	StatusHistory   []StatusHistoryEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Gamepass returns the fulfillment payload when the service variant carries one.
func (t *Transaction) Gamepass() (*Gamepass, bool) {
	if t.Details == nil {
		return nil, false
	}
	gp := t.Details.GamepassPayload()
	if gp == nil {
		return nil, false
	}
	return gp, true
}

// AutoFulfillable reports whether the purchase bot may work on this transaction.
func (t *Transaction) AutoFulfillable() bool {
	gp, ok := t.Gamepass()
	return ok && gp.Valid() &&
		t.ServiceCategory == CategoryRobux5Hari &&
		t.PaymentStatus == PaymentSettlement &&
		t.OrderStatus == OrderPending &&
		t.HoldReason == ""
}

var amountTolerance = decimal.NewFromInt(1)

// ComputeAmounts fills the derived money fields from quantity, unit price and discount.
func (t *Transaction) ComputeAmounts() {
	t.TotalAmount = t.UnitPrice.Mul(decimal.NewFromInt(t.Quantity))
	t.DiscountAmount = t.TotalAmount.Mul(t.DiscountPercentage).Div(decimal.NewFromInt(100)).Round(0)
	t.FinalAmount = t.TotalAmount.Sub(t.DiscountAmount)
}

// CheckAmounts validates finalAmount = total - discount and discount = total*pct/100
// within one rupiah.
func (t *Transaction) CheckAmounts() error {
	wantDiscount := t.TotalAmount.Mul(t.DiscountPercentage).Div(decimal.NewFromInt(100))
	if t.DiscountAmount.Sub(wantDiscount).Abs().GreaterThan(amountTolerance) {
		return ErrAmountMismatch
	}
	if t.FinalAmount.Sub(t.TotalAmount.Sub(t.DiscountAmount)).Abs().GreaterThan(amountTolerance) {
		return ErrAmountMismatch
	}
	return nil
}

// LastHistory returns the most recent history entry, if any.
func (t *Transaction) LastHistory() (StatusHistoryEntry, bool) {
	if len(t.StatusHistory) == 0 {
		return StatusHistoryEntry{}, false
	}
	return t.StatusHistory[len(t.StatusHistory)-1], true
}

// StatusUpdate is the only way a transaction's statuses change. Nil fields are
// left untouched.
type StatusUpdate struct {
	PaymentStatus *PaymentStatus
	OrderStatus   *OrderStatus
	Notes         string
	UpdatedBy     string

	// OnlyIfPaymentChanges turns the update into a no-op when the stored
	// payment status already equals PaymentStatus.
	OnlyIfPaymentChanges bool
	// OnlyIfOrderStatusIn skips the update unless the stored order status is listed.
	OnlyIfOrderStatusIn []OrderStatus
	// KeepTerminal skips the update when it would move a settled payment to
	// another payment status or touch a completed order.
	KeepTerminal bool

	SetHold *string
	// HoldReservation is recorded together with SetHold.
	HoldReservation *Reservation
	// ClearHold removes the hold and its reservation.
	ClearHold bool
}

// StatusChange is the result of applying a StatusUpdate.
type StatusChange struct {
	Previous Transaction
	Current  *Transaction
	Changed  bool
}

// Apply mutates t in memory according to upd and returns whether anything
// changed. Repositories call it inside their locked section so that the
// in-memory and SQL stores share one transition rule.
func (upd StatusUpdate) Apply(t *Transaction, now time.Time) bool {
	if upd.OnlyIfPaymentChanges && upd.PaymentStatus != nil && t.PaymentStatus == *upd.PaymentStatus {
		return false
	}
	if upd.KeepTerminal {
		if t.OrderStatus == OrderCompleted {
			return false
		}
		if t.PaymentStatus == PaymentSettlement && upd.PaymentStatus != nil && *upd.PaymentStatus != PaymentSettlement {
			return false
		}
	}
	if len(upd.OnlyIfOrderStatusIn) > 0 {
		allowed := false
		for _, s := range upd.OnlyIfOrderStatusIn {
			if t.OrderStatus == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if upd.PaymentStatus != nil {
		t.PaymentStatus = *upd.PaymentStatus
	}
	if upd.OrderStatus != nil {
		t.OrderStatus = *upd.OrderStatus
	}
	if upd.ClearHold {
		t.HoldReason = ""
		t.HeldReservation = nil
	}
	if upd.SetHold != nil {
		t.HoldReason = *upd.SetHold
		t.HeldReservation = nil
		if upd.HoldReservation != nil {
			r := *upd.HoldReservation
			t.HeldReservation = &r
		}
	}
	t.UpdatedAt = now
	t.StatusHistory = append(t.StatusHistory, StatusHistoryEntry{
		Status:    t.OrderStatus,
		Timestamp: now,
		Notes:     upd.Notes,
		UpdatedBy: upd.UpdatedBy,
	})
	return true
}

func PaymentStatusPtr(s PaymentStatus) *PaymentStatus { return &s }
func OrderStatusPtr(s OrderStatus) *OrderStatus       { return &s }
