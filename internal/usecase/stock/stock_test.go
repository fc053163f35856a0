package stock

import (
	"context"
	"errors"
	"testing"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/memory"
	"github.com/rbxstore/fulfillment-service/internal/usecase/fulfillment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cookieBalances map[string]int64

func (b cookieBalances) FetchRobux(_ context.Context, cookie string) (int64, error) {
	robux, ok := b[cookie]
	if !ok {
		return 0, domain.ErrInvalidCookie
	}
	return robux, nil
}

type recordingSink struct {
	events []domain.StockEvent
	err    error
}

func (s *recordingSink) StockChanged(_ context.Context, ev domain.StockEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

func newStock(t *testing.T, balances cookieBalances) (*DefaultStockUsecase, *memory.StockAccountRepository, *recordingSink) {
	t.Helper()
	repo := memory.NewStockAccountRepository()
	sink := &recordingSink{}
	uc := NewDefaultStockUsecase(repo, fulfillment.NewAllocator(repo, balances, nil), sink)
	return uc, repo, sink
}

func TestCreateAccount_RefreshesAndEmits(t *testing.T) {
	uc, repo, sink := newStock(t, cookieBalances{"cookie-1": 750})

	acc, err := uc.CreateAccount(context.Background(), CreateAccountInput{Username: " stocker ", RobloxCookie: "cookie-1", Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "stocker", acc.Username)

	stored, err := repo.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), stored.Robux)
	assert.Equal(t, domain.StockAccountActive, stored.Status)

	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.StockEvent{AccountID: acc.ID, Action: ActionCreated, Actor: "admin"}, sink.events[0])
}

func TestCreateAccount_Validation(t *testing.T) {
	uc, _, sink := newStock(t, cookieBalances{})
	_, err := uc.CreateAccount(context.Background(), CreateAccountInput{Username: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Empty(t, sink.events)
}

func TestCreateAccount_BadCookieStoredInvalid(t *testing.T) {
	uc, repo, _ := newStock(t, cookieBalances{})
	acc, err := uc.CreateAccount(context.Background(), CreateAccountInput{Username: "x", RobloxCookie: "expired"})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StockAccountInvalid, stored.Status)
}

func TestUpdateAccount_NewCookieReactivates(t *testing.T) {
	uc, repo, sink := newStock(t, cookieBalances{"fresh": 300})
	require.NoError(t, repo.Create(context.Background(), &domain.StockAccount{
		ID: "a", Username: "old", RobloxCookie: "stale", Status: domain.StockAccountInvalid,
	}))

	cookie := "fresh"
	acc, err := uc.UpdateAccount(context.Background(), UpdateAccountInput{ID: "a", RobloxCookie: &cookie, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, domain.StockAccountActive, acc.Status)

	stored, err := repo.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int64(300), stored.Robux)
	require.Len(t, sink.events, 1)
	assert.Equal(t, ActionUpdated, sink.events[0].Action)
}

func TestUpdateAccount_UnknownStatus(t *testing.T) {
	uc, repo, _ := newStock(t, cookieBalances{})
	require.NoError(t, repo.Create(context.Background(), &domain.StockAccount{ID: "a", Username: "a", Status: domain.StockAccountActive}))
	bogus := domain.StockAccountStatus("banned")
	_, err := uc.UpdateAccount(context.Background(), UpdateAccountInput{ID: "a", Status: &bogus})
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestRefreshAccount(t *testing.T) {
	uc, repo, sink := newStock(t, cookieBalances{"c": 42})
	require.NoError(t, repo.Create(context.Background(), &domain.StockAccount{ID: "a", Username: "a", RobloxCookie: "c", Status: domain.StockAccountActive}))

	acc, err := uc.RefreshAccount(context.Background(), "a", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(42), acc.Robux)
	assert.Len(t, sink.events, 1)

	_, err = uc.RefreshAccount(context.Background(), "missing", "admin")
	require.ErrorIs(t, err, domain.ErrStockAccountNotFound)
}

func TestSinkFailureDoesNotFailMutation(t *testing.T) {
	uc, _, sink := newStock(t, cookieBalances{"c": 1})
	sink.err = errors.New("broker down")
	_, err := uc.CreateAccount(context.Background(), CreateAccountInput{Username: "a", RobloxCookie: "c"})
	require.NoError(t, err)
}
