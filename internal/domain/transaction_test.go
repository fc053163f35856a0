package domain

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func settledRobux5Hari() *Transaction {
	return &Transaction{
		ID:              "tx-1",
		ServiceType:     ServiceRobux,
		ServiceCategory: CategoryRobux5Hari,
		Details:         RobuxDetails{Amount: 100, Gamepass: &Gamepass{ProductID: "9", Name: "VIP", Price: 100}},
		PaymentStatus:   PaymentSettlement,
		OrderStatus:     OrderPending,
	}
}

func TestStatusUpdate_AppliesAndRecordsHistory(t *testing.T) {
	tx := &Transaction{PaymentStatus: PaymentPending, OrderStatus: OrderWaitingPayment}

	changed := StatusUpdate{
		PaymentStatus: PaymentStatusPtr(PaymentSettlement),
		OrderStatus:   OrderStatusPtr(OrderProcessing),
		Notes:         "paid",
		UpdatedBy:     "system:webhook:midtrans",
	}.Apply(tx, t0)

	require.True(t, changed)
	assert.Equal(t, PaymentSettlement, tx.PaymentStatus)
	assert.Equal(t, OrderProcessing, tx.OrderStatus)
	assert.Equal(t, t0, tx.UpdatedAt)
	last, ok := tx.LastHistory()
	require.True(t, ok)
	assert.Equal(t, StatusHistoryEntry{Status: OrderProcessing, Timestamp: t0, Notes: "paid", UpdatedBy: "system:webhook:midtrans"}, last)
}

func TestStatusUpdate_OnlyIfPaymentChanges(t *testing.T) {
	tx := &Transaction{PaymentStatus: PaymentSettlement, OrderStatus: OrderCompleted}

	changed := StatusUpdate{
		PaymentStatus:        PaymentStatusPtr(PaymentSettlement),
		OrderStatus:          OrderStatusPtr(OrderProcessing),
		OnlyIfPaymentChanges: true,
	}.Apply(tx, t0)

	assert.False(t, changed)
	assert.Equal(t, OrderCompleted, tx.OrderStatus)
	assert.Empty(t, tx.StatusHistory)
}

func TestStatusUpdate_OnlyIfOrderStatusIn(t *testing.T) {
	tx := &Transaction{OrderStatus: OrderInProgress}
	upd := StatusUpdate{
		OrderStatus:         OrderStatusPtr(OrderPending),
		OnlyIfOrderStatusIn: []OrderStatus{OrderProcessing},
	}
	assert.False(t, upd.Apply(tx, t0))
	assert.Equal(t, OrderInProgress, tx.OrderStatus)

	tx.OrderStatus = OrderProcessing
	assert.True(t, upd.Apply(tx, t0))
	assert.Equal(t, OrderPending, tx.OrderStatus)
}

func TestStatusUpdate_Hold(t *testing.T) {
	tx := settledRobux5Hari()
	reason := "price_mismatch"
	StatusUpdate{SetHold: &reason}.Apply(tx, t0)
	assert.Equal(t, reason, tx.HoldReason)
	assert.False(t, tx.AutoFulfillable())

	StatusUpdate{ClearHold: true}.Apply(tx, t0)
	assert.Empty(t, tx.HoldReason)
	assert.True(t, tx.AutoFulfillable())
}

func TestAutoFulfillable(t *testing.T) {
	assert.True(t, settledRobux5Hari().AutoFulfillable())

	tx := settledRobux5Hari()
	tx.ServiceCategory = "robux_instant"
	assert.False(t, tx.AutoFulfillable())

	tx = settledRobux5Hari()
	tx.PaymentStatus = PaymentPending
	assert.False(t, tx.AutoFulfillable())

	tx = settledRobux5Hari()
	tx.Details = RobuxDetails{Amount: 100}
	assert.False(t, tx.AutoFulfillable())

	tx = settledRobux5Hari()
	tx.Details = RobuxDetails{Amount: 100, Gamepass: &Gamepass{ProductID: "9", Name: "VIP"}}
	assert.False(t, tx.AutoFulfillable())
}

func TestAmounts(t *testing.T) {
	tx := &Transaction{
		Quantity:           3,
		UnitPrice:          decimal.NewFromInt(15000),
		DiscountPercentage: decimal.NewFromInt(10),
	}
	tx.ComputeAmounts()
	assert.True(t, tx.TotalAmount.Equal(decimal.NewFromInt(45000)))
	assert.True(t, tx.DiscountAmount.Equal(decimal.NewFromInt(4500)))
	assert.True(t, tx.FinalAmount.Equal(decimal.NewFromInt(40500)))
	require.NoError(t, tx.CheckAmounts())

	tx.FinalAmount = decimal.NewFromInt(40502)
	assert.True(t, errors.Is(tx.CheckAmounts(), ErrAmountMismatch))
}

func TestServiceDetailsRoundTripByType(t *testing.T) {
	raw, err := MarshalServiceDetails(ResellerPackageDetails{PackageID: "p", Tier: "gold", DurationMonths: 3})
	require.NoError(t, err)

	d, err := UnmarshalServiceDetails(ServiceResellerPackage, raw)
	require.NoError(t, err)
	assert.Equal(t, ResellerPackageDetails{PackageID: "p", Tier: "gold", DurationMonths: 3}, d)

	_, err = UnmarshalServiceDetails("voucher", raw)
	assert.True(t, errors.Is(err, ErrUnknownServiceType))

	d, err = UnmarshalServiceDetails(ServiceJoki, nil)
	require.NoError(t, err)
	assert.Nil(t, d.GamepassPayload())
}

func TestPrepareNew(t *testing.T) {
	tx := &Transaction{}
	tx.PrepareNew(t0)

	assert.NotEmpty(t, tx.ID)
	assert.Regexp(t, regexp.MustCompile(`^INV-20260310-[0-9A-Z]{6}$`), tx.InvoiceID)
	assert.Equal(t, tx.InvoiceID, tx.CorrelationID)
	assert.Equal(t, t0, tx.CreatedAt)

	kept := &Transaction{ID: "a", InvoiceID: "INV-1", CorrelationID: "ORDER-9"}
	kept.PrepareNew(t0)
	assert.Equal(t, "a", kept.ID)
	assert.Equal(t, "ORDER-9", kept.CorrelationID)
}

func TestStockAccountStringRedactsCookie(t *testing.T) {
	a := &StockAccount{ID: "1", Username: "stock", RobloxCookie: "_|WARNING:-DO-NOT-SHARE-THIS", Robux: 500, ReservedRobux: 100}
	assert.False(t, strings.Contains(a.String(), "WARNING"))
	assert.Equal(t, int64(400), a.Available())
}
