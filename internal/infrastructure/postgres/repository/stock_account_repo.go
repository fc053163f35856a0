package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/mappers"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultStockAccountRepository struct {
	DB *gorm.DB
}

func NewDefaultStockAccountRepository(db *gorm.DB) *DefaultStockAccountRepository {
	return &DefaultStockAccountRepository{DB: db}
}

func (r *DefaultStockAccountRepository) Create(ctx context.Context, account *domain.StockAccount) error {
	return r.DB.WithContext(ctx).Create(mappers.ToGORMStockAccount(account)).Error
}

// Update writes the admin-editable fields. Reserved robux is owned by the
// allocator and is never overwritten here.
func (r *DefaultStockAccountRepository) Update(ctx context.Context, account *domain.StockAccount) error {
	res := r.DB.WithContext(ctx).Model(&models.StockAccountModel{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"username":      account.Username,
			"roblox_cookie": account.RobloxCookie,
			"robux":         account.Robux,
			"status":        account.Status,
			"last_checked":  account.LastChecked,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStockAccountNotFound
	}
	return nil
}

func (r *DefaultStockAccountRepository) GetByID(ctx context.Context, id string) (*domain.StockAccount, error) {
	var model models.StockAccountModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStockAccountNotFound
		}
		return nil, err
	}
	return mappers.ToDomainStockAccount(&model), nil
}

func (r *DefaultStockAccountRepository) ListActive(ctx context.Context) ([]*domain.StockAccount, error) {
	var rows []models.StockAccountModel
	if err := r.DB.WithContext(ctx).
		Where("status = ?", domain.StockAccountActive).
		Order("robux ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.StockAccount, 0, len(rows))
	for i := range rows {
		out = append(out, mappers.ToDomainStockAccount(&rows[i]))
	}
	return out, nil
}

func (r *DefaultStockAccountRepository) FindSmallestSufficient(ctx context.Context, required int64, exclude []string) (*domain.StockAccount, error) {
	q := r.DB.WithContext(ctx).
		Where("status = ? AND robux - reserved_robux >= ?", domain.StockAccountActive, required)
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var model models.StockAccountModel
	if err := q.Order("robux - reserved_robux ASC, id ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoStockAccount
		}
		return nil, err
	}
	return mappers.ToDomainStockAccount(&model), nil
}

func (r *DefaultStockAccountRepository) UpdateBalance(ctx context.Context, id string, robux int64, checkedAt time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.StockAccountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"robux": robux, "last_checked": checkedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStockAccountNotFound
	}
	return nil
}

func (r *DefaultStockAccountRepository) Reserve(ctx context.Context, id string, amount int64) error {
	res := r.DB.WithContext(ctx).Model(&models.StockAccountModel{}).
		Where("id = ? AND status = ? AND robux - reserved_robux >= ?", id, domain.StockAccountActive, amount).
		UpdateColumn("reserved_robux", gorm.Expr("reserved_robux + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAllocationVoid
	}
	return nil
}

func (r *DefaultStockAccountRepository) Release(ctx context.Context, id string, amount int64) error {
	return r.DB.WithContext(ctx).Model(&models.StockAccountModel{}).
		Where("id = ?", id).
		UpdateColumn("reserved_robux", gorm.Expr("GREATEST(reserved_robux - ?, 0)", amount)).Error
}

func (r *DefaultStockAccountRepository) Debit(ctx context.Context, id string, amount int64, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.StockAccountModel{}).
		Where("id = ? AND reserved_robux >= ?", id, amount).
		UpdateColumns(map[string]any{
			"robux":          gorm.Expr("robux - ?", amount),
			"reserved_robux": gorm.Expr("reserved_robux - ?", amount),
			"last_checked":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInsufficientReserve
	}
	return nil
}
