package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/gateway"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
	"github.com/shopspring/decimal"
)

// Notification is a gateway callback reduced to the fields reconciliation
// needs. Midtrans fills StatusCode/TransactionStatus/FraudStatus, Duitku fills
// MerchantCode/ResultCode. Raw is the body as received, kept for the event log.
type Notification struct {
	Gateway       domain.Gateway
	CorrelationID string
	GrossAmount   string
	Signature     string

	StatusCode        string
	TransactionStatus string
	FraudStatus       string

	MerchantCode string
	ResultCode   string

	Raw []byte
}

// GatewayState is the gateway-side status string the mapping tables consume.
func (n Notification) GatewayState() string {
	if n.Gateway == domain.GatewayDuitku {
		return n.ResultCode
	}
	return n.TransactionStatus
}

type TransactionUpdate struct {
	TransactionID         string               `json:"transactionId"`
	InvoiceID             string               `json:"invoiceId"`
	PreviousPaymentStatus domain.PaymentStatus `json:"previousPaymentStatus"`
	PaymentStatus         domain.PaymentStatus `json:"paymentStatus"`
	OrderStatus           domain.OrderStatus   `json:"orderStatus"`
	Changed               bool                 `json:"changed"`
}

type ResellerActivation struct {
	UserID       string    `json:"userId"`
	PreviousTier string    `json:"previousTier"`
	NewTier      string    `json:"newTier"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type WebhookResult struct {
	CorrelationID       string              `json:"correlationId"`
	ResultCode          string              `json:"resultCode"`
	StatusMapping       StatusMapping       `json:"statusMapping"`
	TransactionsUpdated []TransactionUpdate `json:"transactionsUpdated"`
	Reseller            *ResellerActivation `json:"reseller,omitempty"`
	// SideEffectErrors lists failures that happened after the status change
	// was committed. They are not retried by a redelivery.
	SideEffectErrors []string `json:"sideEffectErrors,omitempty"`
}

// Enqueuer accepts settled robux_5_hari transactions for immediate fulfillment.
type Enqueuer interface {
	Enqueue(transactionID string) bool
}

// StatusChecker re-reads a Midtrans order from the gateway API.
type StatusChecker interface {
	CheckStatus(ctx context.Context, orderID string) (*gateway.MidtransStatus, error)
}

type Config struct {
	MidtransServerKey    string
	DuitkuMerchantCode   string
	DuitkuAPIKey         string
	VerifyMidtransStatus bool
}

type PaymentUsecase interface {
	HandleWebhook(ctx context.Context, n Notification) (*WebhookResult, error)
}

type DefaultPaymentUsecase struct {
	TxRepo        domain.TransactionRepository
	Ledger        domain.UserLedger
	Mailer        domain.Mailer
	Events        domain.GatewayEventLogger
	Queue         Enqueuer
	StatusChecker StatusChecker
	Metrics       *metrics.FulfillmentMetrics

	cfg Config
	now func() time.Time
}

func NewDefaultPaymentUsecase(
	cfg Config,
	txRepo domain.TransactionRepository,
	ledger domain.UserLedger,
	mailer domain.Mailer,
	events domain.GatewayEventLogger,
	queue Enqueuer,
	statusChecker StatusChecker,
	fulfillmentMetrics *metrics.FulfillmentMetrics,
) *DefaultPaymentUsecase {
	return &DefaultPaymentUsecase{
		TxRepo:        txRepo,
		Ledger:        ledger,
		Mailer:        mailer,
		Events:        events,
		Queue:         queue,
		StatusChecker: statusChecker,
		Metrics:       fulfillmentMetrics,
		cfg:           cfg,
		now:           time.Now,
	}
}

const processingNote = "Pesanan sedang diproses"

func (uc *DefaultPaymentUsecase) HandleWebhook(ctx context.Context, n Notification) (*WebhookResult, error) {
	n.CorrelationID = strings.TrimSpace(n.CorrelationID)
	if n.CorrelationID == "" {
		uc.Metrics.RecordWebhook(string(n.Gateway), "invalid_payload")
		return nil, fmt.Errorf("%w: missing order id", domain.ErrInvalidPayload)
	}
	if err := uc.verifySignature(n); err != nil {
		log.Printf("🚫 [WEBHOOK] %s signature rejected for %s", n.Gateway, n.CorrelationID)
		uc.Metrics.RecordWebhook(string(n.Gateway), "invalid_signature")
		return nil, err
	}

	event := &domain.GatewayEvent{
		ID:            uuid.New().String(),
		Gateway:       n.Gateway,
		CorrelationID: n.CorrelationID,
		ResultCode:    n.GatewayState(),
		Payload:       n.Raw,
		Signature:     n.Signature,
		Status:        domain.GatewayEventReceived,
		ReceivedAt:    uc.now(),
	}
	if err := uc.Events.LogReceived(ctx, event); err != nil {
		slog.Warn("gateway event log failed", "gateway", n.Gateway, "correlation_id", n.CorrelationID, "error", err)
	}

	result, err := uc.reconcile(ctx, n)
	if err != nil {
		uc.markEvent(ctx, event.ID, domain.GatewayEventFailed, err.Error())
		outcome := "error"
		if errors.Is(err, domain.ErrTransactionNotFound) {
			outcome = "not_found"
		}
		uc.Metrics.RecordWebhook(string(n.Gateway), outcome)
		return nil, err
	}

	if len(result.SideEffectErrors) > 0 {
		uc.markEvent(ctx, event.ID, domain.GatewayEventFailed, strings.Join(result.SideEffectErrors, "; "))
	} else {
		uc.markEvent(ctx, event.ID, domain.GatewayEventProcessed, "")
	}
	uc.Metrics.RecordWebhook(string(n.Gateway), "accepted")
	return result, nil
}

func (uc *DefaultPaymentUsecase) verifySignature(n Notification) error {
	switch n.Gateway {
	case domain.GatewayMidtrans:
		if uc.cfg.MidtransServerKey == "" {
			return fmt.Errorf("%w: midtrans server key not configured", domain.ErrInvalidSignature)
		}
		expected := MidtransSignature(n.CorrelationID, n.StatusCode, n.GrossAmount, uc.cfg.MidtransServerKey)
		if !signatureEqual(expected, n.Signature) {
			return domain.ErrInvalidSignature
		}
		return nil
	case domain.GatewayDuitku:
		if uc.cfg.DuitkuAPIKey == "" {
			return fmt.Errorf("%w: duitku api key not configured", domain.ErrInvalidSignature)
		}
		if uc.cfg.DuitkuMerchantCode != "" && n.MerchantCode != uc.cfg.DuitkuMerchantCode {
			return fmt.Errorf("%w: unexpected merchant code", domain.ErrInvalidSignature)
		}
		expected := DuitkuSignature(n.MerchantCode, n.GrossAmount, n.CorrelationID, uc.cfg.DuitkuAPIKey)
		if !signatureEqual(expected, n.Signature) {
			return domain.ErrInvalidSignature
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported gateway %q", domain.ErrInvalidPayload, n.Gateway)
}

func (uc *DefaultPaymentUsecase) resolveMapping(ctx context.Context, n Notification) (StatusMapping, error) {
	if n.Gateway == domain.GatewayDuitku {
		return MapDuitkuResult(n.ResultCode), nil
	}
	if uc.cfg.VerifyMidtransStatus && uc.StatusChecker != nil {
		status, err := uc.StatusChecker.CheckStatus(ctx, n.CorrelationID)
		if err != nil {
			return StatusMapping{}, fmt.Errorf("midtrans status check %s: %w", n.CorrelationID, err)
		}
		if status.TransactionStatus != n.TransactionStatus {
			slog.Warn("midtrans notification disagrees with status api",
				"correlation_id", n.CorrelationID,
				"notified", n.TransactionStatus,
				"actual", status.TransactionStatus,
			)
		}
		return MapMidtransStatus(status.TransactionStatus, status.FraudStatus), nil
	}
	return MapMidtransStatus(n.TransactionStatus, n.FraudStatus), nil
}

func (uc *DefaultPaymentUsecase) reconcile(ctx context.Context, n Notification) (*WebhookResult, error) {
	txs, err := uc.TxRepo.FindByCorrelationID(ctx, n.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", n.CorrelationID, err)
	}
	if len(txs) == 0 {
		log.Printf("⚠️  [WEBHOOK] No transactions for %s order %s", n.Gateway, n.CorrelationID)
		return nil, domain.ErrTransactionNotFound
	}

	mapping, err := uc.resolveMapping(ctx, n)
	if err != nil {
		return nil, err
	}
	if !mapping.Known {
		slog.Warn("unknown gateway status, treating as pending",
			"gateway", n.Gateway,
			"correlation_id", n.CorrelationID,
			"state", n.GatewayState(),
		)
	}

	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.FinalAmount)
	}
	uc.checkGrossAmount(n, total)

	log.Printf("💳 [WEBHOOK] %s order %s -> %s/%s (%d transaction(s))",
		n.Gateway, n.CorrelationID, mapping.PaymentStatus, mapping.OrderStatus, len(txs))

	result := &WebhookResult{
		CorrelationID:       n.CorrelationID,
		ResultCode:          n.GatewayState(),
		StatusMapping:       mapping,
		TransactionsUpdated: make([]TransactionUpdate, 0, len(txs)),
	}

	updatedBy := "system:webhook:" + string(n.Gateway)
	notes := fmt.Sprintf("Pembayaran %s via %s (%s)", mapping.PaymentStatus, n.Gateway, n.GatewayState())

	var settled []*domain.Transaction
	for _, tx := range txs {
		change, err := uc.TxRepo.ApplyStatus(ctx, tx.ID, domain.StatusUpdate{
			PaymentStatus:        domain.PaymentStatusPtr(mapping.PaymentStatus),
			OrderStatus:          domain.OrderStatusPtr(mapping.OrderStatus),
			Notes:                notes,
			UpdatedBy:            updatedBy,
			OnlyIfPaymentChanges: true,
			KeepTerminal:         true,
		})
		if err != nil {
			return nil, fmt.Errorf("apply status to %s: %w", tx.ID, err)
		}

		current := change.Current
		result.TransactionsUpdated = append(result.TransactionsUpdated, TransactionUpdate{
			TransactionID:         tx.ID,
			InvoiceID:             tx.InvoiceID,
			PreviousPaymentStatus: change.Previous.PaymentStatus,
			PaymentStatus:         current.PaymentStatus,
			OrderStatus:           current.OrderStatus,
			Changed:               change.Changed,
		})
		if !change.Changed {
			if current.PaymentStatus != mapping.PaymentStatus {
				log.Printf("⏮️  [WEBHOOK] Ignoring late %s for %s, already %s/%s",
					mapping.PaymentStatus, tx.InvoiceID, current.PaymentStatus, current.OrderStatus)
			}
			continue
		}
		uc.Metrics.RecordTransition(string(current.PaymentStatus), string(current.OrderStatus), updatedBy)

		if current.PaymentStatus == domain.PaymentSettlement && change.Previous.PaymentStatus != domain.PaymentSettlement {
			settled = append(settled, current)
		}
	}

	// The credit is keyed on the gateway order, so a redelivery after a
	// partial failure still lands it exactly once.
	if mapping.PaymentStatus == domain.PaymentSettlement {
		uc.creditLedger(ctx, txs[0].UserID, total, n.Gateway, result)
	}
	if len(settled) == 0 {
		return result, nil
	}
	for _, tx := range settled {
		uc.activateReseller(ctx, tx, result)
		uc.enqueueFulfillment(ctx, tx, result)
	}
	uc.sendInvoice(ctx, n, txs, total)
	return result, nil
}

func (uc *DefaultPaymentUsecase) checkGrossAmount(n Notification, total decimal.Decimal) {
	if n.GrossAmount == "" {
		return
	}
	gross, err := decimal.NewFromString(strings.TrimSpace(n.GrossAmount))
	if err != nil {
		slog.Warn("unparseable gross amount", "correlation_id", n.CorrelationID, "gross_amount", n.GrossAmount)
		return
	}
	if gross.Sub(total).Abs().GreaterThan(decimal.NewFromInt(1)) {
		slog.Warn("gross amount differs from stored transactions",
			"correlation_id", n.CorrelationID,
			"gross_amount", gross.String(),
			"stored_total", total.String(),
		)
	}
}

func (uc *DefaultPaymentUsecase) creditLedger(ctx context.Context, userID string, total decimal.Decimal, gw domain.Gateway, result *WebhookResult) {
	if userID == "" {
		return
	}
	credited, err := uc.Ledger.CreditSpending(ctx, userID, result.CorrelationID, total)
	if err != nil {
		slog.Error("ledger credit failed", "user_id", userID, "amount", total.String(), "correlation_id", result.CorrelationID, "error", err)
		result.SideEffectErrors = append(result.SideEffectErrors, "ledger: "+err.Error())
		return
	}
	if !credited {
		return
	}
	amount, _ := total.Float64()
	uc.Metrics.RecordSettlement(string(gw), amount)
	log.Printf("💰 [WEBHOOK] Credited %s to user %s", total.String(), userID)
}

func (uc *DefaultPaymentUsecase) activateReseller(ctx context.Context, tx *domain.Transaction, result *WebhookResult) {
	details, ok := tx.Details.(domain.ResellerPackageDetails)
	if !ok || tx.UserID == "" {
		return
	}
	expiresAt := uc.now().AddDate(0, details.DurationMonths, 0)
	previous, err := uc.Ledger.ActivateResellerTier(ctx, tx.UserID, details.Tier, expiresAt)
	if err != nil {
		slog.Error("reseller activation failed", "user_id", tx.UserID, "tier", details.Tier, "error", err)
		result.SideEffectErrors = append(result.SideEffectErrors, "reseller: "+err.Error())
		return
	}
	result.Reseller = &ResellerActivation{
		UserID:       tx.UserID,
		PreviousTier: previous,
		NewTier:      details.Tier,
		ExpiresAt:    expiresAt,
	}
	log.Printf("⭐ [WEBHOOK] Reseller tier %s -> %s for user %s until %s",
		previous, details.Tier, tx.UserID, expiresAt.Format(time.RFC3339))
}

// enqueueFulfillment parks a robux_5_hari row as pending and then hands it to
// the fulfillment worker. A row lost from the in-memory queue stays visible
// to the sweep.
func (uc *DefaultPaymentUsecase) enqueueFulfillment(ctx context.Context, tx *domain.Transaction, result *WebhookResult) {
	if tx.ServiceCategory != domain.CategoryRobux5Hari {
		return
	}
	if gp, ok := tx.Gamepass(); !ok || !gp.Valid() {
		slog.Warn("robux_5_hari transaction without gamepass data", "transaction_id", tx.ID)
		return
	}
	change, err := uc.TxRepo.ApplyStatus(ctx, tx.ID, domain.StatusUpdate{
		OrderStatus:         domain.OrderStatusPtr(domain.OrderPending),
		Notes:               processingNote,
		UpdatedBy:           "system:webhook",
		OnlyIfOrderStatusIn: []domain.OrderStatus{domain.OrderProcessing},
	})
	if err != nil {
		result.SideEffectErrors = append(result.SideEffectErrors, "backlog: "+err.Error())
	} else if change.Changed {
		for i := range result.TransactionsUpdated {
			if result.TransactionsUpdated[i].TransactionID == tx.ID {
				result.TransactionsUpdated[i].OrderStatus = change.Current.OrderStatus
			}
		}
	}
	if uc.Queue != nil && uc.Queue.Enqueue(tx.ID) {
		return
	}
	log.Printf("⏳ [WEBHOOK] Fulfillment queue full, leaving %s for the sweep", tx.InvoiceID)
}

func (uc *DefaultPaymentUsecase) sendInvoice(ctx context.Context, n Notification, txs []*domain.Transaction, total decimal.Decimal) {
	email := txs[0].Email
	if email == "" || uc.Mailer == nil {
		return
	}
	inv := domain.Invoice{
		Email:         email,
		CorrelationID: n.CorrelationID,
		Gateway:       n.Gateway,
		Total:         total,
		PaidAt:        uc.now(),
	}
	for _, tx := range txs {
		inv.Lines = append(inv.Lines, domain.InvoiceLine{
			InvoiceID:   tx.InvoiceID,
			Description: describe(tx),
			Quantity:    tx.Quantity,
			FinalAmount: tx.FinalAmount,
		})
	}
	if err := uc.Mailer.SendInvoice(ctx, inv); err != nil {
		slog.Warn("invoice email failed", "correlation_id", n.CorrelationID, "error", err)
	}
}

func describe(tx *domain.Transaction) string {
	switch d := tx.Details.(type) {
	case domain.RobuxDetails:
		return fmt.Sprintf("%d Robux", d.Amount)
	case domain.GamepassDetails:
		return "Gamepass " + d.Gamepass.Name
	case domain.JokiDetails:
		return "Joki " + d.GameName
	case domain.ResellerPackageDetails:
		return fmt.Sprintf("Paket reseller %s (%d bulan)", d.Tier, d.DurationMonths)
	}
	return string(tx.ServiceType)
}

func (uc *DefaultPaymentUsecase) markEvent(ctx context.Context, id string, status domain.GatewayEventStatus, msg string) {
	if err := uc.Events.MarkProcessed(ctx, id, status, msg); err != nil {
		slog.Warn("gateway event update failed", "event_id", id, "error", err)
	}
}
