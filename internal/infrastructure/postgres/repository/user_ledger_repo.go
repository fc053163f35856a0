package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultUserLedger struct {
	DB *gorm.DB
}

func NewDefaultUserLedger(db *gorm.DB) *DefaultUserLedger {
	return &DefaultUserLedger{DB: db}
}

// CreditSpending records the order in ledger_credits and bumps total_spent in
// one database transaction. An existing ledger_credits row makes it a no-op.
func (r *DefaultUserLedger) CreditSpending(ctx context.Context, userID, correlationID string, amount decimal.Decimal) (bool, error) {
	credited := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit := models.LedgerCreditModel{
			CorrelationID: correlationID,
			UserID:        userID,
			Amount:        amount,
			CreatedAt:     time.Now(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&credit)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		res = tx.Model(&models.UserModel{}).
			Where("id = ?", userID).
			UpdateColumns(map[string]any{
				"total_spent": gorm.Expr("total_spent + ?", amount),
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}

func (r *DefaultUserLedger) ActivateResellerTier(ctx context.Context, userID, tier string, expiresAt time.Time) (string, error) {
	var previous string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.UserModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}
		previous = user.ResellerTier
		return tx.Model(&models.UserModel{}).Where("id = ?", userID).Updates(map[string]any{
			"reseller_tier":       tier,
			"reseller_expires_at": expiresAt,
			"updated_at":          time.Now(),
		}).Error
	})
	return previous, err
}
