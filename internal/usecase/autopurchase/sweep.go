// Package autopurchase runs the serial sweep over settled robux_5_hari
// transactions that are waiting for a gamepass purchase.
package autopurchase

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
	"github.com/rbxstore/fulfillment-service/internal/usecase/fulfillment"
)

// Fulfiller performs one purchase attempt and reports what happened.
type Fulfiller interface {
	Fulfill(ctx context.Context, tx *domain.Transaction) fulfillment.Outcome
}

// BalanceRefresher refreshes every active stock account from the live API.
type BalanceRefresher interface {
	RefreshAll(ctx context.Context) ([]*domain.StockAccount, error)
}

type SweepResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Processed      int    `json:"processed"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
	SessionID      string `json:"sessionId,omitempty"`
	AlreadyRunning bool   `json:"alreadyRunning,omitempty"`
}

type AutoPurchaseUsecase interface {
	RunSweep(ctx context.Context, triggeredBy string) (*SweepResult, error)
	GetProgress(ctx context.Context, sessionID string) (*domain.AutoPurchaseProgress, error)
}

type DefaultAutoPurchaseUsecase struct {
	TxRepo       domain.TransactionRepository
	Accounts     domain.StockAccountRepository
	ProgressRepo domain.AutoPurchaseProgressRepository
	Fulfiller    Fulfiller
	Refresher    BalanceRefresher
	Metrics      *metrics.FulfillmentMetrics

	// PurchaseDelay separates two successful purchases.
	PurchaseDelay time.Duration

	running   sync.Mutex
	sessionMu sync.Mutex
	session   string

	newID func() string
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewDefaultAutoPurchaseUsecase(
	txRepo domain.TransactionRepository,
	accounts domain.StockAccountRepository,
	progressRepo domain.AutoPurchaseProgressRepository,
	fulfiller Fulfiller,
	refresher BalanceRefresher,
	purchaseDelay time.Duration,
	m *metrics.FulfillmentMetrics,
) (*DefaultAutoPurchaseUsecase, error) {
	idGenerator, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("session id generator: %w", err)
	}
	return &DefaultAutoPurchaseUsecase{
		TxRepo:        txRepo,
		Accounts:      accounts,
		ProgressRepo:  progressRepo,
		Fulfiller:     fulfiller,
		Refresher:     refresher,
		Metrics:       m,
		PurchaseDelay: purchaseDelay,
		newID:         idGenerator,
		sleep:         sleepCtx,
		now:           time.Now,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CurrentSession returns the id of the sweep in progress, if any.
func (uc *DefaultAutoPurchaseUsecase) CurrentSession() string {
	uc.sessionMu.Lock()
	defer uc.sessionMu.Unlock()
	return uc.session
}

func (uc *DefaultAutoPurchaseUsecase) setSession(id string) {
	uc.sessionMu.Lock()
	uc.session = id
	uc.sessionMu.Unlock()
}

func (uc *DefaultAutoPurchaseUsecase) GetProgress(ctx context.Context, sessionID string) (*domain.AutoPurchaseProgress, error) {
	return uc.ProgressRepo.GetBySessionID(ctx, sessionID)
}

// RunSweep processes every eligible transaction oldest first, one purchase
// at a time. A trigger that arrives while a sweep is running returns the
// running session instead of starting another one.
func (uc *DefaultAutoPurchaseUsecase) RunSweep(ctx context.Context, triggeredBy string) (*SweepResult, error) {
	if !uc.running.TryLock() {
		log.Printf("⏭️  [AUTOPURCHASE] Sweep already running, trigger %q ignored", triggeredBy)
		return &SweepResult{
			Success:        true,
			Message:        "Auto purchase sedang berjalan",
			SessionID:      uc.CurrentSession(),
			AlreadyRunning: true,
		}, nil
	}
	defer uc.running.Unlock()

	progress := &domain.AutoPurchaseProgress{
		SessionID:   uc.newID(),
		Status:      domain.SweepRunning,
		CurrentStep: "Memuat transaksi",
		TriggeredBy: triggeredBy,
		StartTime:   uc.now(),
	}
	if err := uc.ProgressRepo.Create(ctx, progress); err != nil {
		return nil, fmt.Errorf("create sweep progress: %w", err)
	}
	uc.setSession(progress.SessionID)
	defer uc.setSession("")

	log.Printf("🤖 [AUTOPURCHASE] Sweep %s started by %s", progress.SessionID, triggeredBy)

	result, err := uc.sweepRecovered(ctx, progress)
	if err != nil {
		log.Printf("❌ [AUTOPURCHASE] Sweep %s failed: %v", progress.SessionID, err)
		progress.Error = err.Error()
		uc.finish(progress, domain.SweepFailed, "Gagal")
		return &SweepResult{
			Success:   false,
			Message:   err.Error(),
			Processed: progress.Summary.ProcessedCount,
			Skipped:   progress.Summary.SkippedCount,
			Failed:    progress.Summary.FailedCount,
			SessionID: progress.SessionID,
		}, err
	}
	return result, nil
}

// sweepRecovered turns a panic inside the sweep into an error so the session
// is still closed as failed.
func (uc *DefaultAutoPurchaseUsecase) sweepRecovered(ctx context.Context, p *domain.AutoPurchaseProgress) (result *SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sweep panicked", "session_id", p.SessionID, "panic", r, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	return uc.sweep(ctx, p)
}

func (uc *DefaultAutoPurchaseUsecase) sweep(ctx context.Context, p *domain.AutoPurchaseProgress) (*SweepResult, error) {
	txs, err := uc.TxRepo.FindAutoFulfillable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load eligible transactions: %w", err)
	}
	accounts, err := uc.Accounts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock accounts: %w", err)
	}
	p.StockAccounts = snapshots(accounts)

	if len(txs) == 0 {
		p.CurrentStep = "Tidak ada transaksi, memperbarui saldo akun"
		uc.save(ctx, p)
		refreshed, err := uc.Refresher.RefreshAll(ctx)
		if err != nil {
			slog.Warn("stock balance refresh failed", "session_id", p.SessionID, "error", err)
		} else {
			p.StockAccounts = snapshots(refreshed)
		}
		uc.finish(p, domain.SweepCompleted, "Selesai")
		log.Printf("💤 [AUTOPURCHASE] Sweep %s found nothing to buy", p.SessionID)
		return &SweepResult{Success: true, Message: "Tidak ada transaksi yang perlu diproses"}, nil
	}

	p.Transactions = make([]domain.ProgressItem, len(txs))
	for i, tx := range txs {
		p.Transactions[i] = domain.ProgressItem{
			InvoiceID:     tx.InvoiceID,
			TransactionID: tx.ID,
			Status:        domain.ItemPending,
		}
	}
	p.Summary.TotalTransactions = len(txs)
	p.CurrentStep = fmt.Sprintf("Ditemukan %d transaksi", len(txs))
	uc.save(ctx, p)

	halted := false
	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := &p.Transactions[i]

		if gp, ok := tx.Gamepass(); !ok || !gp.Valid() {
			item.Status = domain.ItemFailed
			item.Error = "data gamepass tidak lengkap"
			p.Summary.FailedCount++
			uc.Metrics.RecordSweepItem(string(domain.ItemFailed))
			uc.save(ctx, p)
			continue
		}

		item.Status = domain.ItemProcessing
		p.CurrentStep = fmt.Sprintf("Memproses %s (%d/%d)", tx.InvoiceID, i+1, len(txs))
		uc.save(ctx, p)

		out := uc.Fulfiller.Fulfill(ctx, tx)
		switch out.Kind {
		case fulfillment.OutcomeCompleted:
			item.Status = domain.ItemCompleted
			item.UsedAccount = out.AccountName()
			p.Summary.ProcessedCount++
		case fulfillment.OutcomeNoStock:
			for j := i; j < len(p.Transactions); j++ {
				p.Transactions[j].Status = domain.ItemSkipped
				p.Transactions[j].Error = "stok robux tidak mencukupi"
				uc.Metrics.RecordSweepItem(string(domain.ItemSkipped))
			}
			p.Summary.SkippedCount += len(p.Transactions) - i
			halted = true
		default:
			item.Status = domain.ItemFailed
			item.UsedAccount = out.AccountName()
			if out.Err != nil {
				item.Error = out.Err.Error()
			}
			p.Summary.FailedCount++
		}
		if !halted {
			uc.Metrics.RecordSweepItem(string(item.Status))
		}

		if out.Account != nil {
			p.StockAccounts = refreshSnapshot(p.StockAccounts, out.Account)
		}
		uc.save(ctx, p)

		if halted {
			log.Printf("📭 [AUTOPURCHASE] Sweep %s halted at %s: no stock account left", p.SessionID, tx.InvoiceID)
			break
		}
		if out.Kind == fulfillment.OutcomeCompleted && i < len(txs)-1 {
			if err := uc.sleep(ctx, uc.PurchaseDelay); err != nil {
				return nil, err
			}
		}
	}

	if accounts, err := uc.Accounts.ListActive(ctx); err == nil {
		p.StockAccounts = snapshots(accounts)
	}
	uc.finish(p, domain.SweepCompleted, "Selesai")

	s := p.Summary
	log.Printf("✅ [AUTOPURCHASE] Sweep %s done: processed=%d skipped=%d failed=%d",
		p.SessionID, s.ProcessedCount, s.SkippedCount, s.FailedCount)

	result := &SweepResult{
		Success:   true,
		Message:   fmt.Sprintf("%d berhasil, %d dilewati, %d gagal", s.ProcessedCount, s.SkippedCount, s.FailedCount),
		Processed: s.ProcessedCount,
		Skipped:   s.SkippedCount,
		Failed:    s.FailedCount,
	}
	if s.ProcessedCount > 0 || s.FailedCount > 0 {
		result.SessionID = p.SessionID
	}
	return result, nil
}

func (uc *DefaultAutoPurchaseUsecase) finish(p *domain.AutoPurchaseProgress, status domain.SweepStatus, step string) {
	end := uc.now()
	p.Status = status
	p.CurrentStep = step
	p.EndTime = &end
	// The run context may already be cancelled; the final record still has to land.
	uc.save(context.Background(), p)
	uc.Metrics.RecordSweep(string(status))
}

func (uc *DefaultAutoPurchaseUsecase) save(ctx context.Context, p *domain.AutoPurchaseProgress) {
	if err := uc.ProgressRepo.Save(ctx, p); err != nil {
		slog.Warn("save sweep progress failed", "session_id", p.SessionID, "error", err)
	}
}

func snapshots(accounts []*domain.StockAccount) []domain.StockSnapshot {
	out := make([]domain.StockSnapshot, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Snapshot())
	}
	return out
}

func refreshSnapshot(list []domain.StockSnapshot, account *domain.StockAccount) []domain.StockSnapshot {
	for i := range list {
		if list[i].ID == account.ID {
			list[i].Robux = account.Robux
			return list
		}
	}
	return append(list, account.Snapshot())
}

// StockChanged starts a sweep in the background. It satisfies
// domain.StockEventSink for deployments without a broker.
func (uc *DefaultAutoPurchaseUsecase) StockChanged(_ context.Context, ev domain.StockEvent) error {
	reason := fmt.Sprintf("stock:%s:%s", ev.Action, ev.AccountID)
	go func() {
		if _, err := uc.RunSweep(context.Background(), reason); err != nil {
			slog.Error("triggered sweep failed", "reason", reason, "error", err)
		}
	}()
	return nil
}
