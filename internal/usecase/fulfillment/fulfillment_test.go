package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBalances struct {
	mu    sync.Mutex
	live  map[string]int64
	errs  map[string]error
	calls int
}

func (b *fakeBalances) FetchRobux(_ context.Context, cookie string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if err, ok := b.errs[cookie]; ok {
		return 0, err
	}
	return b.live[cookie], nil
}

type fakeDriver struct {
	mu       sync.Mutex
	requests []domain.PurchaseRequest
	err      error
}

func (d *fakeDriver) Purchase(_ context.Context, req domain.PurchaseRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return d.err
}

type env struct {
	txs      *memory.TransactionRepository
	accounts *memory.StockAccountRepository
	balances *fakeBalances
	driver   *fakeDriver
	orch     *Orchestrator
}

func newEnv(t *testing.T, accounts map[string]int64) *env {
	t.Helper()
	e := &env{
		txs:      memory.NewTransactionRepository(),
		accounts: memory.NewStockAccountRepository(),
		balances: &fakeBalances{live: map[string]int64{}, errs: map[string]error{}},
		driver:   &fakeDriver{},
	}
	for name, robux := range accounts {
		require.NoError(t, e.accounts.Create(context.Background(), &domain.StockAccount{
			ID:           name,
			Username:     "user-" + name,
			RobloxCookie: "cookie-" + name,
			Robux:        robux,
			Status:       domain.StockAccountActive,
		}))
		e.balances.live["cookie-"+name] = robux
	}
	allocator := NewAllocator(e.accounts, e.balances, nil)
	e.orch = NewOrchestrator(e.txs, e.accounts, allocator, e.driver, nil)
	return e
}

func (e *env) seedTx(t *testing.T, id string, price int64) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		ID:              id,
		InvoiceID:       "INV-" + id,
		ServiceType:     domain.ServiceRobux,
		ServiceCategory: domain.CategoryRobux5Hari,
		Details: domain.RobuxDetails{
			Amount:   price,
			Gamepass: &domain.Gamepass{ProductID: "555", Name: "Speed Coil", Price: price},
		},
		PaymentStatus: domain.PaymentSettlement,
		OrderStatus:   domain.OrderPending,
	}
	require.NoError(t, e.txs.Create(context.Background(), tx))
	got, err := e.txs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return got
}

func (e *env) account(t *testing.T, id string) *domain.StockAccount {
	t.Helper()
	a, err := e.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (e *env) tx(t *testing.T, id string) *domain.Transaction {
	t.Helper()
	tx, err := e.txs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func TestAllocate_PicksSmallestSufficient(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 50, "b": 120, "c": 80})

	acc, err := e.orch.Allocator.Allocate(context.Background(), 70)
	require.NoError(t, err)
	assert.Equal(t, "c", acc.ID)
	assert.Equal(t, int64(70), e.account(t, "c").ReservedRobux)
}

func TestAllocate_NoAccountCovers(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 50, "b": 60})

	_, err := e.orch.Allocator.Allocate(context.Background(), 70)
	require.ErrorIs(t, err, domain.ErrNoStockAccount)
	assert.Zero(t, e.balances.calls)
}

func TestAllocate_StaleBalanceVoidsCandidate(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 100, "b": 300})
	e.balances.live["cookie-a"] = 20

	_, err := e.orch.Allocator.Allocate(context.Background(), 90)
	var void *VoidedAllocation
	require.ErrorAs(t, err, &void)
	assert.Equal(t, "a", void.AccountID)
	assert.ErrorIs(t, err, domain.ErrAllocationVoid)
	assert.Equal(t, int64(20), e.account(t, "a").Robux)
	assert.Zero(t, e.account(t, "a").ReservedRobux)
}

func TestAllocate_RejectedCookieInvalidatesAccount(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 100})
	e.balances.errs["cookie-a"] = domain.ErrInvalidCookie

	_, err := e.orch.Allocator.Allocate(context.Background(), 50)
	require.ErrorIs(t, err, domain.ErrAllocationVoid)
	assert.Equal(t, domain.StockAccountInvalid, e.account(t, "a").Status)
}

func TestAllocate_ReservationBlocksDoubleSpend(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 100})

	_, err := e.orch.Allocator.Allocate(context.Background(), 80)
	require.NoError(t, err)
	_, err = e.orch.Allocator.Allocate(context.Background(), 80)
	require.ErrorIs(t, err, domain.ErrNoStockAccount)
}

func TestRefreshAll_SkipsInvalidAccounts(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 100, "b": 200})
	e.balances.live["cookie-a"] = 140
	e.balances.errs["cookie-b"] = domain.ErrInvalidCookie

	accounts, err := e.orch.Allocator.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "a", accounts[0].ID)
	assert.Equal(t, int64(140), e.account(t, "a").Robux)
	assert.Equal(t, domain.StockAccountInvalid, e.account(t, "b").Status)
}

func TestFulfill_CompletesWithSmallestSufficientAccount(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 90, "b": 150})
	tx := e.seedTx(t, "tx-1", 100)

	out := e.orch.Fulfill(context.Background(), tx)
	require.Equal(t, OutcomeCompleted, out.Kind, "err: %v", out.Err)
	assert.Equal(t, "user-b", out.AccountName())

	b := e.account(t, "b")
	assert.Equal(t, int64(50), b.Robux)
	assert.Zero(t, b.ReservedRobux)
	assert.Equal(t, int64(90), e.account(t, "a").Robux)

	got := e.tx(t, "tx-1")
	assert.Equal(t, domain.OrderCompleted, got.OrderStatus)
	last, ok := got.LastHistory()
	require.True(t, ok)
	assert.Contains(t, last.Notes, "user-b")

	require.Len(t, e.driver.requests, 1)
	assert.Equal(t, domain.PurchaseRequest{
		Cookie:        "cookie-b",
		ProductID:     "555",
		ProductName:   "Speed Coil",
		ExpectedPrice: 100,
	}, e.driver.requests[0])
}

func TestFulfill_RetriesAfterVoidedAllocation(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 110, "b": 400})
	e.balances.live["cookie-a"] = 10

	out := e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100))
	require.Equal(t, OutcomeCompleted, out.Kind)
	assert.Equal(t, "b", out.Account.ID)
	assert.Equal(t, int64(300), e.account(t, "b").Robux)
}

func TestFulfill_NoStockLeavesPending(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 10})
	tx := e.seedTx(t, "tx-1", 100)

	out := e.orch.Fulfill(context.Background(), tx)
	assert.Equal(t, OutcomeNoStock, out.Kind)
	assert.Empty(t, e.driver.requests)

	got := e.tx(t, "tx-1")
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
	assert.Empty(t, got.StatusHistory)
	assert.NoError(t, e.orch.FulfillGamepassTransaction(context.Background(), got))
}

func TestFulfill_NoStockMovesProcessingToPending(t *testing.T) {
	e := newEnv(t, nil)
	tx := e.seedTx(t, "tx-1", 100)
	_, err := e.txs.ApplyStatus(context.Background(), "tx-1", domain.StatusUpdate{OrderStatus: domain.OrderStatusPtr(domain.OrderProcessing)})
	require.NoError(t, err)
	tx.OrderStatus = domain.OrderProcessing

	out := e.orch.Fulfill(context.Background(), tx)
	assert.Equal(t, OutcomeNoStock, out.Kind)
	got := e.tx(t, "tx-1")
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
	last, _ := got.LastHistory()
	assert.Equal(t, NoteProcessing, last.Notes)
}

func TestFulfill_DriverFailureReturnsToPending(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.driver.err = &domain.PurchaseError{Kind: domain.KindElementTimeout, Err: errors.New("buy button")}

	out := e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100))
	assert.Equal(t, OutcomeFailed, out.Kind)

	got := e.tx(t, "tx-1")
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
	assert.Empty(t, got.HoldReason)
	assert.True(t, got.AutoFulfillable())

	a := e.account(t, "a")
	assert.Equal(t, int64(500), a.Robux)
	assert.Zero(t, a.ReservedRobux)
}

func TestFulfill_PriceMismatchHoldsTransaction(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.driver.err = &domain.PurchaseError{Kind: domain.KindPriceMismatch, Expected: 100, Actual: 150}

	out := e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100))
	assert.Equal(t, OutcomeHeld, out.Kind)

	got := e.tx(t, "tx-1")
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
	assert.Contains(t, got.HoldReason, "expected 100")
	assert.Contains(t, got.HoldReason, "150")
	assert.False(t, got.AutoFulfillable())
	assert.Zero(t, e.account(t, "a").ReservedRobux)
}

func TestFulfill_PossiblyCommittedKeepsReservation(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.driver.err = &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: errors.New("tab crashed")}

	out := e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100))
	assert.Equal(t, OutcomeHeld, out.Kind)
	assert.NotEmpty(t, e.tx(t, "tx-1").HoldReason)
	assert.Equal(t, int64(100), e.account(t, "a").ReservedRobux)
}

func TestFulfill_RejectsHeldAndInvalid(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})

	held := e.seedTx(t, "tx-1", 100)
	held.HoldReason = "manual"
	assert.Equal(t, OutcomeHeld, e.orch.Fulfill(context.Background(), held).Kind)

	broken := e.seedTx(t, "tx-2", 100)
	broken.Details = domain.RobuxDetails{Amount: 100}
	out := e.orch.Fulfill(context.Background(), broken)
	assert.Equal(t, OutcomeInvalid, out.Kind)
	assert.ErrorIs(t, out.Err, domain.ErrMissingGamepass)

	assert.Empty(t, e.driver.requests)
}

func TestFulfill_SecondAttemptOnCompletedTransactionDoesNotBuy(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	tx := e.seedTx(t, "tx-1", 100)

	require.Equal(t, OutcomeCompleted, e.orch.Fulfill(context.Background(), tx).Kind)
	out := e.orch.Fulfill(context.Background(), tx)
	assert.Equal(t, OutcomeInvalid, out.Kind)
	assert.Len(t, e.driver.requests, 1)
	assert.Zero(t, e.account(t, "a").ReservedRobux)
}

func TestReleaseHold(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.seedTx(t, "tx-1", 100)

	_, err := e.orch.ReleaseHold(context.Background(), "tx-1", "admin:ops", domain.HoldRetry)
	require.ErrorIs(t, err, domain.ErrNoHold)

	reason := "price_mismatch"
	_, err = e.txs.ApplyStatus(context.Background(), "tx-1", domain.StatusUpdate{SetHold: &reason})
	require.NoError(t, err)

	_, err = e.orch.ReleaseHold(context.Background(), "tx-1", "admin:ops", "refund")
	require.ErrorIs(t, err, domain.ErrInvalidPayload)

	got, err := e.orch.ReleaseHold(context.Background(), "tx-1", "admin:ops", "")
	require.NoError(t, err)
	assert.Empty(t, got.HoldReason)
	assert.True(t, got.AutoFulfillable())
	last, _ := got.LastHistory()
	assert.Equal(t, "admin:ops", last.UpdatedBy)

	_, err = e.orch.ReleaseHold(context.Background(), "tx-1", "admin:ops", domain.HoldRetry)
	assert.ErrorIs(t, err, domain.ErrNoHold)
}

func TestFulfill_PossiblyCommittedRecordsReservationOnHold(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.driver.err = &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: errors.New("tab crashed")}

	e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100))
	got := e.tx(t, "tx-1")
	require.NotNil(t, got.HeldReservation)
	assert.Equal(t, domain.Reservation{AccountID: "a", Robux: 100}, *got.HeldReservation)
}

func TestReleaseHold_RetryFreesReservationAndRebuys(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 150})
	e.driver.err = &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: errors.New("tab crashed")}
	require.Equal(t, OutcomeHeld, e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100)).Kind)
	require.Equal(t, int64(100), e.account(t, "a").ReservedRobux)

	got, err := e.orch.ReleaseHold(context.Background(), "tx-1", "admin:ops", domain.HoldRetry)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
	assert.Nil(t, got.HeldReservation)
	assert.Zero(t, e.account(t, "a").ReservedRobux)

	e.driver.err = nil
	out := e.orch.Fulfill(context.Background(), e.tx(t, "tx-1"))
	require.Equal(t, OutcomeCompleted, out.Kind)
	a := e.account(t, "a")
	assert.Equal(t, int64(50), a.Robux)
	assert.Zero(t, a.ReservedRobux)
}

func TestReleaseHold_PurchasedCompletesAndSyncsBalance(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.driver.err = &domain.PurchaseError{Kind: domain.KindPossiblyCommitted, Err: errors.New("tab crashed")}
	require.Equal(t, OutcomeHeld, e.orch.Fulfill(context.Background(), e.seedTx(t, "tx-1", 100)).Kind)
	e.balances.live["cookie-a"] = 400

	got, err := e.orch.ReleaseHold(context.Background(), "tx-1", "admin:ops", domain.HoldPurchased)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, got.OrderStatus)
	assert.Empty(t, got.HoldReason)
	assert.False(t, got.AutoFulfillable())

	a := e.account(t, "a")
	assert.Equal(t, int64(400), a.Robux)
	assert.Zero(t, a.ReservedRobux)
	assert.Len(t, e.driver.requests, 1)
}

type unreachableAccounts struct {
	*memory.StockAccountRepository
}

func (unreachableAccounts) FindSmallestSufficient(context.Context, int64, []string) (*domain.StockAccount, error) {
	return nil, errors.New("connection reset by peer")
}

func TestFulfill_AllocationErrorMovesProcessingToPending(t *testing.T) {
	e := newEnv(t, map[string]int64{"a": 500})
	e.orch.Allocator = NewAllocator(unreachableAccounts{e.accounts}, e.balances, nil)
	tx := e.seedTx(t, "tx-1", 100)
	_, err := e.txs.ApplyStatus(context.Background(), "tx-1", domain.StatusUpdate{OrderStatus: domain.OrderStatusPtr(domain.OrderProcessing)})
	require.NoError(t, err)
	tx.OrderStatus = domain.OrderProcessing

	out := e.orch.Fulfill(context.Background(), tx)
	require.Equal(t, OutcomeFailed, out.Kind)
	assert.Empty(t, e.driver.requests)

	got := e.tx(t, "tx-1")
	assert.Equal(t, domain.OrderPending, got.OrderStatus)
	assert.True(t, got.AutoFulfillable())
	assert.Zero(t, e.account(t, "a").ReservedRobux)
}

type recordingFulfiller struct {
	mu       sync.Mutex
	done     chan string
	parked   []string
	fulfills []string
}

func (r *recordingFulfiller) FulfillByID(_ context.Context, id string) error {
	r.mu.Lock()
	r.fulfills = append(r.fulfills, id)
	r.mu.Unlock()
	r.done <- id
	return nil
}

func (r *recordingFulfiller) Park(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parked = append(r.parked, id)
	return nil
}

func TestQueue_EnqueueIsNonBlocking(t *testing.T) {
	q := NewQueue(&recordingFulfiller{}, 2)
	assert.True(t, q.Enqueue("a"))
	assert.True(t, q.Enqueue("b"))
	assert.False(t, q.Enqueue("c"))
	assert.Equal(t, 2, q.Len())
}

func TestQueue_RunProcessesInOrderAndParksOnStop(t *testing.T) {
	f := &recordingFulfiller{done: make(chan string, 4)}
	q := NewQueue(f, 4)
	require.True(t, q.Enqueue("a"))
	require.True(t, q.Enqueue("b"))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(stopped)
	}()

	for _, want := range []string{"a", "b"} {
		select {
		case got := <-f.done:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("worker did not process job")
		}
	}
	cancel()
	<-stopped

	require.True(t, q.Enqueue("c"))
	q.drain()
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"c"}, f.parked)
}
