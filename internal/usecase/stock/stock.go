package stock

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbxstore/fulfillment-service/internal/domain"
)

const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionRefreshed = "refreshed"
)

// BalanceRefresher reads and stores the live balance of one account.
type BalanceRefresher interface {
	Refresh(ctx context.Context, account *domain.StockAccount) error
}

type CreateAccountInput struct {
	Username     string
	RobloxCookie string
	Actor        string
}

// UpdateAccountInput leaves nil fields untouched.
type UpdateAccountInput struct {
	ID           string
	Username     *string
	RobloxCookie *string
	Status       *domain.StockAccountStatus
	Actor        string
}

type StockUsecase interface {
	CreateAccount(ctx context.Context, in CreateAccountInput) (*domain.StockAccount, error)
	UpdateAccount(ctx context.Context, in UpdateAccountInput) (*domain.StockAccount, error)
	RefreshAccount(ctx context.Context, id, actor string) (*domain.StockAccount, error)
	ListActive(ctx context.Context) ([]*domain.StockAccount, error)
}

type DefaultStockUsecase struct {
	Accounts  domain.StockAccountRepository
	Refresher BalanceRefresher
	Events    domain.StockEventSink

	now func() time.Time
}

func NewDefaultStockUsecase(accounts domain.StockAccountRepository, refresher BalanceRefresher, events domain.StockEventSink) *DefaultStockUsecase {
	return &DefaultStockUsecase{Accounts: accounts, Refresher: refresher, Events: events, now: time.Now}
}

func (uc *DefaultStockUsecase) CreateAccount(ctx context.Context, in CreateAccountInput) (*domain.StockAccount, error) {
	username := strings.TrimSpace(in.Username)
	cookie := strings.TrimSpace(in.RobloxCookie)
	if username == "" || cookie == "" {
		return nil, fmt.Errorf("%w: username and cookie are required", domain.ErrInvalidPayload)
	}

	now := uc.now()
	account := &domain.StockAccount{
		ID:           uuid.New().String(),
		Username:     username,
		RobloxCookie: cookie,
		Status:       domain.StockAccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create stock account: %w", err)
	}
	log.Printf("📦 [STOCK] Account %s added by %s", account.Username, in.Actor)

	if err := uc.Refresher.Refresh(ctx, account); err != nil {
		slog.Warn("initial balance refresh failed", "account", account.Username, "error", err)
	}
	uc.emit(ctx, account.ID, ActionCreated, in.Actor)
	return account, nil
}

func (uc *DefaultStockUsecase) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*domain.StockAccount, error) {
	account, err := uc.Accounts.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	cookieChanged := false
	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		account.Username = strings.TrimSpace(*in.Username)
	}
	if in.RobloxCookie != nil && strings.TrimSpace(*in.RobloxCookie) != "" {
		account.RobloxCookie = strings.TrimSpace(*in.RobloxCookie)
		cookieChanged = true
	}
	if in.Status != nil {
		switch *in.Status {
		case domain.StockAccountActive, domain.StockAccountInactive, domain.StockAccountInvalid:
			account.Status = *in.Status
		default:
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidPayload, *in.Status)
		}
	}
	if cookieChanged && account.Status == domain.StockAccountInvalid {
		account.Status = domain.StockAccountActive
	}
	if err := uc.Accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("update stock account: %w", err)
	}

	if cookieChanged && account.Status == domain.StockAccountActive {
		if err := uc.Refresher.Refresh(ctx, account); err != nil {
			slog.Warn("balance refresh after cookie change failed", "account", account.Username, "error", err)
		}
	}
	uc.emit(ctx, account.ID, ActionUpdated, in.Actor)
	return account, nil
}

func (uc *DefaultStockUsecase) RefreshAccount(ctx context.Context, id, actor string) (*domain.StockAccount, error) {
	account, err := uc.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := uc.Refresher.Refresh(ctx, account); err != nil {
		return nil, err
	}
	uc.emit(ctx, account.ID, ActionRefreshed, actor)
	return account, nil
}

func (uc *DefaultStockUsecase) ListActive(ctx context.Context) ([]*domain.StockAccount, error) {
	return uc.Accounts.ListActive(ctx)
}

func (uc *DefaultStockUsecase) emit(ctx context.Context, accountID, action, actor string) {
	if uc.Events == nil {
		return
	}
	ev := domain.StockEvent{AccountID: accountID, Action: action, Actor: actor}
	if err := uc.Events.StockChanged(ctx, ev); err != nil {
		slog.Warn("stock event not delivered", "account_id", accountID, "action", action, "error", err)
	}
}
