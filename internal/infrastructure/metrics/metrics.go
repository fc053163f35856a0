package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FulfillmentMetrics groups the pipeline counters. A nil *FulfillmentMetrics
// is valid and records nothing.
type FulfillmentMetrics struct {
	// Webhooks
	WebhooksTotal       *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	SettlementAmountIDR *prometheus.CounterVec

	// Purchases
	PurchasesTotal   *prometheus.CounterVec
	PurchaseDuration *prometheus.HistogramVec
	AllocationsTotal *prometheus.CounterVec

	// Sweeps
	SweepsTotal     *prometheus.CounterVec
	SweepItemsTotal *prometheus.CounterVec

	// Chat
	ChatMessagesTotal *prometheus.CounterVec
}

func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	f := promauto.With(reg)
	return &FulfillmentMetrics{
		WebhooksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_total",
				Help: "Payment webhooks received, by gateway and outcome",
			},
			[]string{"gateway", "outcome"},
		),
		StatusTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_status_transitions_total",
				Help: "Applied transaction status changes",
			},
			[]string{"payment_status", "order_status", "updated_by"},
		),
		SettlementAmountIDR: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settlement_amount_idr_total",
				Help: "Sum of final amounts credited on settlement",
			},
			[]string{"gateway"},
		),
		PurchasesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gamepass_purchases_total",
				Help: "Browser purchase attempts by outcome",
			},
			[]string{"outcome"},
		),
		PurchaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gamepass_purchase_duration_seconds",
				Help:    "Duration of one browser purchase flow",
				Buckets: prometheus.ExponentialBuckets(1, 2, 7), // 1s .. 64s
			},
			[]string{"outcome"},
		),
		AllocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_allocations_total",
				Help: "Stock account allocation results",
			},
			[]string{"result"},
		),
		SweepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auto_purchase_sweeps_total",
				Help: "Auto purchase sweeps by final status",
			},
			[]string{"status"},
		),
		SweepItemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auto_purchase_sweep_items_total",
				Help: "Sweep items by final item status",
			},
			[]string{"status"},
		),
		ChatMessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_messages_total",
				Help: "Chat send attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *FulfillmentMetrics) RecordWebhook(gateway, outcome string) {
	if m == nil {
		return
	}
	m.WebhooksTotal.WithLabelValues(gateway, outcome).Inc()
}

func (m *FulfillmentMetrics) RecordTransition(paymentStatus, orderStatus, updatedBy string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(paymentStatus, orderStatus, updatedBy).Inc()
}

func (m *FulfillmentMetrics) RecordSettlement(gateway string, amount float64) {
	if m == nil {
		return
	}
	m.SettlementAmountIDR.WithLabelValues(gateway).Add(amount)
}

func (m *FulfillmentMetrics) RecordPurchase(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.PurchasesTotal.WithLabelValues(outcome).Inc()
	m.PurchaseDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

func (m *FulfillmentMetrics) RecordAllocation(result string) {
	if m == nil {
		return
	}
	m.AllocationsTotal.WithLabelValues(result).Inc()
}

func (m *FulfillmentMetrics) RecordSweep(status string) {
	if m == nil {
		return
	}
	m.SweepsTotal.WithLabelValues(status).Inc()
}

func (m *FulfillmentMetrics) RecordSweepItem(status string) {
	if m == nil {
		return
	}
	m.SweepItemsTotal.WithLabelValues(status).Inc()
}

func (m *FulfillmentMetrics) RecordChat(result string) {
	if m == nil {
		return
	}
	m.ChatMessagesTotal.WithLabelValues(result).Inc()
}
