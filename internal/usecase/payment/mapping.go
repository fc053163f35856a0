package payment

import (
	"strings"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// StatusMapping is the pair of statuses a gateway state translates to.
// Known is false for states the tables do not list.
type StatusMapping struct {
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	OrderStatus   domain.OrderStatus   `json:"orderStatus"`
	Known         bool                 `json:"-"`
}

var unknownMapping = StatusMapping{
	PaymentStatus: domain.PaymentPending,
	OrderStatus:   domain.OrderWaitingPayment,
}

// MapMidtransStatus translates transaction_status (and fraud_status for captures).
func MapMidtransStatus(transactionStatus, fraudStatus string) StatusMapping {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		switch strings.ToLower(fraudStatus) {
		case "accept", "":
			return StatusMapping{domain.PaymentSettlement, domain.OrderProcessing, true}
		case "challenge":
			return StatusMapping{domain.PaymentPending, domain.OrderWaitingPayment, true}
		}
		return StatusMapping{domain.PaymentFailed, domain.OrderFailed, true}
	case "settlement":
		return StatusMapping{domain.PaymentSettlement, domain.OrderProcessing, true}
	case "pending":
		return StatusMapping{domain.PaymentPending, domain.OrderWaitingPayment, true}
	case "deny", "failure":
		return StatusMapping{domain.PaymentFailed, domain.OrderFailed, true}
	case "cancel":
		return StatusMapping{domain.PaymentCancelled, domain.OrderCancelled, true}
	case "expire":
		return StatusMapping{domain.PaymentExpired, domain.OrderCancelled, true}
	}
	return unknownMapping
}

// MapDuitkuResult translates a Duitku callback resultCode.
func MapDuitkuResult(resultCode string) StatusMapping {
	switch strings.TrimSpace(resultCode) {
	case "00":
		return StatusMapping{domain.PaymentSettlement, domain.OrderProcessing, true}
	case "01":
		return StatusMapping{domain.PaymentFailed, domain.OrderFailed, true}
	case "02":
		return StatusMapping{domain.PaymentCancelled, domain.OrderCancelled, true}
	}
	return unknownMapping
}
