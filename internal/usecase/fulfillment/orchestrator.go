package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
)

const (
	maxAllocationAttempts = 3

	NoteProcessing = "Pesanan sedang diproses"
	botActor       = "system:auto-purchase"
)

type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeNoStock   OutcomeKind = "no_stock"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeInvalid   OutcomeKind = "invalid"
	OutcomeHeld      OutcomeKind = "held"
)

// Outcome is what one fulfillment attempt did to a transaction. Account is
// set once a stock account was reserved.
type Outcome struct {
	Kind    OutcomeKind
	Account *domain.StockAccount
	Err     error
}

func (o Outcome) AccountName() string {
	if o.Account == nil {
		return ""
	}
	return o.Account.Username
}

type Orchestrator struct {
	Tx        domain.TransactionRepository
	Accounts  domain.StockAccountRepository
	Allocator *Allocator
	Driver    domain.PurchaseDriver
	Metrics   *metrics.FulfillmentMetrics

	// purchaseMu keeps a single browser purchase in flight per process.
	purchaseMu sync.Mutex
	now        func() time.Time
}

func NewOrchestrator(
	tx domain.TransactionRepository,
	accounts domain.StockAccountRepository,
	allocator *Allocator,
	driver domain.PurchaseDriver,
	m *metrics.FulfillmentMetrics,
) *Orchestrator {
	return &Orchestrator{
		Tx:        tx,
		Accounts:  accounts,
		Allocator: allocator,
		Driver:    driver,
		Metrics:   m,
		now:       time.Now,
	}
}

// FulfillGamepassTransaction buys the gamepass of tx and records the result
// on the transaction. Running out of stock is not an error.
func (o *Orchestrator) FulfillGamepassTransaction(ctx context.Context, tx *domain.Transaction) error {
	out := o.Fulfill(ctx, tx)
	switch out.Kind {
	case OutcomeCompleted, OutcomeNoStock:
		return nil
	}
	return out.Err
}

// FulfillByID loads the transaction and fulfills it.
func (o *Orchestrator) FulfillByID(ctx context.Context, id string) error {
	tx, err := o.Tx.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return o.FulfillGamepassTransaction(ctx, tx)
}

func (o *Orchestrator) Fulfill(ctx context.Context, tx *domain.Transaction) Outcome {
	gp, ok := tx.Gamepass()
	if !ok || !gp.Valid() {
		return Outcome{Kind: OutcomeInvalid, Err: domain.ErrMissingGamepass}
	}
	if tx.HoldReason != "" {
		return Outcome{Kind: OutcomeHeld, Err: fmt.Errorf("%w: on hold (%s)", domain.ErrNotFulfillable, tx.HoldReason)}
	}
	if tx.PaymentStatus != domain.PaymentSettlement {
		return Outcome{Kind: OutcomeInvalid, Err: fmt.Errorf("%w: payment %s", domain.ErrNotFulfillable, tx.PaymentStatus)}
	}
	if tx.OrderStatus != domain.OrderPending && tx.OrderStatus != domain.OrderProcessing {
		return Outcome{Kind: OutcomeInvalid, Err: fmt.Errorf("%w: order status %s", domain.ErrNotFulfillable, tx.OrderStatus)}
	}

	o.purchaseMu.Lock()
	defer o.purchaseMu.Unlock()

	account, err := o.allocate(ctx, gp.Price)
	if err != nil {
		if errors.Is(err, domain.ErrNoStockAccount) {
			log.Printf("📭 [FULFILL] No stock account covers %d robux for %s", gp.Price, tx.InvoiceID)
			o.apply(ctx, tx.ID, domain.StatusUpdate{
				OrderStatus:         domain.OrderStatusPtr(domain.OrderPending),
				Notes:               NoteProcessing,
				UpdatedBy:           botActor,
				OnlyIfOrderStatusIn: []domain.OrderStatus{domain.OrderProcessing},
			})
			return Outcome{Kind: OutcomeNoStock, Err: err}
		}
		slog.Error("stock allocation failed", "invoice_id", tx.InvoiceID, "error", err)
		o.apply(ctx, tx.ID, domain.StatusUpdate{
			OrderStatus:         domain.OrderStatusPtr(domain.OrderPending),
			Notes:               NoteProcessing,
			UpdatedBy:           botActor,
			OnlyIfOrderStatusIn: []domain.OrderStatus{domain.OrderProcessing},
		})
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	claimed, err := o.Tx.ApplyStatus(ctx, tx.ID, domain.StatusUpdate{
		OrderStatus:         domain.OrderStatusPtr(domain.OrderInProgress),
		Notes:               fmt.Sprintf("Membeli gamepass %s dengan akun %s", gp.Name, account.Username),
		UpdatedBy:           botActor,
		OnlyIfOrderStatusIn: []domain.OrderStatus{domain.OrderPending, domain.OrderProcessing},
	})
	if err != nil || !claimed.Changed {
		o.release(ctx, account, gp.Price)
		if err == nil {
			err = fmt.Errorf("%w: order status %s", domain.ErrNotFulfillable, claimed.Current.OrderStatus)
		}
		return Outcome{Kind: OutcomeInvalid, Err: err}
	}

	log.Printf("🛒 [FULFILL] Buying %s (%d robux) for %s with %s",
		gp.Name, gp.Price, tx.InvoiceID, account.Username)

	start := o.now()
	err = o.Driver.Purchase(ctx, domain.PurchaseRequest{
		Cookie:        account.RobloxCookie,
		ProductID:     gp.ProductID,
		ProductName:   gp.Name,
		ExpectedPrice: gp.Price,
	})
	elapsed := o.now().Sub(start).Seconds()

	if err == nil {
		o.Metrics.RecordPurchase("completed", elapsed)
		o.apply(ctx, tx.ID, domain.StatusUpdate{
			OrderStatus: domain.OrderStatusPtr(domain.OrderCompleted),
			Notes:       fmt.Sprintf("Gamepass %s berhasil dibeli menggunakan akun %s", gp.Name, account.Username),
			UpdatedBy:   botActor,
		})
		if err := o.Accounts.Debit(ctx, account.ID, gp.Price, o.now()); err != nil {
			slog.Error("stock debit failed", "account", account.Username, "amount", gp.Price, "error", err)
		}
		account.Robux -= gp.Price
		account.ReservedRobux -= gp.Price
		log.Printf("✅ [FULFILL] %s completed, %s now at %d robux", tx.InvoiceID, account.Username, account.Robux)
		return Outcome{Kind: OutcomeCompleted, Account: account}
	}

	pe, _ := domain.AsPurchaseError(err)
	if pe != nil && pe.NeedsOperator() {
		o.Metrics.RecordPurchase(string(pe.Kind), elapsed)
		var reserved *domain.Reservation
		if pe.Kind == domain.KindPriceMismatch {
			o.release(ctx, account, gp.Price)
		} else {
			reserved = &domain.Reservation{AccountID: account.ID, Robux: gp.Price}
		}
		hold := fmt.Sprintf("%s on %s: %s", pe.Kind, account.Username, pe.Error())
		log.Printf("🛑 [FULFILL] %s put on hold: %s", tx.InvoiceID, hold)
		o.apply(ctx, tx.ID, domain.StatusUpdate{
			OrderStatus:     domain.OrderStatusPtr(domain.OrderPending),
			Notes:           hold,
			UpdatedBy:       botActor,
			SetHold:         &hold,
			HoldReservation: reserved,
		})
		return Outcome{Kind: OutcomeHeld, Account: account, Err: err}
	}

	kind := "error"
	if pe != nil {
		kind = string(pe.Kind)
	}
	o.Metrics.RecordPurchase(kind, elapsed)
	log.Printf("❌ [FULFILL] Purchase for %s failed (%s): %v", tx.InvoiceID, kind, err)
	o.release(ctx, account, gp.Price)
	o.apply(ctx, tx.ID, domain.StatusUpdate{
		OrderStatus: domain.OrderStatusPtr(domain.OrderPending),
		Notes:       fmt.Sprintf("%s (percobaan otomatis gagal: %s)", NoteProcessing, kind),
		UpdatedBy:   botActor,
	})
	return Outcome{Kind: OutcomeFailed, Account: account, Err: err}
}

// Park moves a settled transaction that is still waiting in processing back
// to pending so the sweep owns it.
func (o *Orchestrator) Park(ctx context.Context, id string) error {
	_, err := o.Tx.ApplyStatus(ctx, id, domain.StatusUpdate{
		OrderStatus:         domain.OrderStatusPtr(domain.OrderPending),
		Notes:               NoteProcessing,
		UpdatedBy:           botActor,
		OnlyIfOrderStatusIn: []domain.OrderStatus{domain.OrderProcessing},
	})
	return err
}

// ReleaseHold clears an operator hold and settles the stock still reserved
// for it. HoldRetry releases the reservation and hands the transaction back
// to the sweep. HoldPurchased completes it and re-reads the account balance.
func (o *Orchestrator) ReleaseHold(ctx context.Context, txID, actor string, resolution domain.HoldResolution) (*domain.Transaction, error) {
	if resolution == "" {
		resolution = domain.HoldRetry
	}
	target, verb := domain.OrderPending, "dilepas"
	switch resolution {
	case domain.HoldRetry:
	case domain.HoldPurchased:
		target, verb = domain.OrderCompleted, "dikonfirmasi terbeli"
	default:
		return nil, fmt.Errorf("%w: unknown hold resolution %q", domain.ErrInvalidPayload, resolution)
	}

	tx, err := o.Tx.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.HoldReason == "" {
		return nil, domain.ErrNoHold
	}
	change, err := o.Tx.ApplyStatus(ctx, txID, domain.StatusUpdate{
		OrderStatus:         domain.OrderStatusPtr(target),
		Notes:               fmt.Sprintf("Hold %s oleh %s (sebelumnya: %s)", verb, actor, tx.HoldReason),
		UpdatedBy:           actor,
		ClearHold:           true,
		OnlyIfOrderStatusIn: []domain.OrderStatus{domain.OrderPending},
	})
	if err != nil {
		return nil, err
	}
	// The row lock decides which caller settles the reservation.
	if !change.Changed || change.Previous.HoldReason == "" {
		return nil, domain.ErrNoHold
	}
	log.Printf("🔓 [FULFILL] Hold on %s resolved as %s by %s", tx.InvoiceID, resolution, actor)

	if r := change.Previous.HeldReservation; r != nil {
		if err := o.settleReservation(ctx, *r, resolution); err != nil {
			return change.Current, err
		}
	}
	return change.Current, nil
}

func (o *Orchestrator) settleReservation(ctx context.Context, r domain.Reservation, resolution domain.HoldResolution) error {
	if err := o.Accounts.Release(ctx, r.AccountID, r.Robux); err != nil {
		return fmt.Errorf("release %d robux on %s: %w", r.Robux, r.AccountID, err)
	}
	if resolution != domain.HoldPurchased || o.Allocator == nil {
		return nil
	}
	// The purchase went through, so the live balance already reflects it.
	account, err := o.Accounts.GetByID(ctx, r.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", r.AccountID, err)
	}
	if err := o.Allocator.Refresh(ctx, account); err != nil {
		slog.Warn("balance refresh after confirmed purchase failed", "account", account.Username, "error", err)
	}
	return nil
}

func (o *Orchestrator) allocate(ctx context.Context, required int64) (*domain.StockAccount, error) {
	var exclude []string
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		account, err := o.Allocator.Allocate(ctx, required, exclude...)
		if err == nil {
			return account, nil
		}
		var void *VoidedAllocation
		if !errors.As(err, &void) {
			return nil, err
		}
		log.Printf("🔁 [FULFILL] Allocation attempt %d/%d voided: %s", attempt, maxAllocationAttempts, void.Reason)
		exclude = append(exclude, void.AccountID)
	}
	return nil, domain.ErrNoStockAccount
}

func (o *Orchestrator) release(ctx context.Context, account *domain.StockAccount, amount int64) {
	if err := o.Accounts.Release(ctx, account.ID, amount); err != nil {
		slog.Error("stock reservation release failed", "account", account.Username, "amount", amount, "error", err)
		return
	}
	account.ReservedRobux -= amount
}

func (o *Orchestrator) apply(ctx context.Context, id string, upd domain.StatusUpdate) {
	change, err := o.Tx.ApplyStatus(ctx, id, upd)
	if err != nil {
		slog.Error("transaction status update failed", "transaction_id", id, "error", err)
		return
	}
	if change.Changed {
		o.Metrics.RecordTransition(string(change.Current.PaymentStatus), string(change.Current.OrderStatus), upd.UpdatedBy)
	}
}
