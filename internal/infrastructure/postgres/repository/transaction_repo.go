package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/mappers"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultTransactionRepository struct {
	DB *gorm.DB
}

func NewDefaultTransactionRepository(db *gorm.DB) *DefaultTransactionRepository {
	return &DefaultTransactionRepository{DB: db}
}

func historyOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (r *DefaultTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	tx.PrepareNew(time.Now())
	model, err := mappers.ToGORMTransaction(tx)
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Create(model).Error
}

func (r *DefaultTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var model models.TransactionModel
	if err := r.DB.WithContext(ctx).Preload("StatusHistory", historyOrder).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return mappers.ToDomainTransaction(&model)
}

func (r *DefaultTransactionRepository) FindByCorrelationID(ctx context.Context, correlationID string) ([]*domain.Transaction, error) {
	var rows []models.TransactionModel
	if err := r.DB.WithContext(ctx).
		Preload("StatusHistory", historyOrder).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(rows)
}

func (r *DefaultTransactionRepository) FindAutoFulfillable(ctx context.Context) ([]*domain.Transaction, error) {
	var rows []models.TransactionModel
	if err := r.DB.WithContext(ctx).
		Preload("StatusHistory", historyOrder).
		Where("service_category = ? AND payment_status = ? AND order_status = ? AND COALESCE(hold_reason, '') = ''",
			domain.CategoryRobux5Hari, domain.PaymentSettlement, domain.OrderPending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(rows)
}

func (r *DefaultTransactionRepository) ApplyStatus(ctx context.Context, id string, upd domain.StatusUpdate) (*domain.StatusChange, error) {
	var change *domain.StatusChange
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.TransactionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTransactionNotFound
			}
			return err
		}
		if err := tx.Where("transaction_id = ?", id).Order("id ASC").Find(&model.StatusHistory).Error; err != nil {
			return err
		}

		current, err := mappers.ToDomainTransaction(&model)
		if err != nil {
			return err
		}
		previous := *current
		previous.StatusHistory = append([]domain.StatusHistoryEntry(nil), current.StatusHistory...)

		changed := upd.Apply(current, time.Now())
		change = &domain.StatusChange{Previous: previous, Current: current, Changed: changed}
		if !changed {
			return nil
		}

		holdAccountID, holdRobux := "", int64(0)
		if current.HeldReservation != nil {
			holdAccountID, holdRobux = current.HeldReservation.AccountID, current.HeldReservation.Robux
		}
		if err := tx.Model(&models.TransactionModel{}).Where("id = ?", id).Updates(map[string]any{
			"payment_status":  current.PaymentStatus,
			"order_status":    current.OrderStatus,
			"hold_reason":     current.HoldReason,
			"hold_account_id": holdAccountID,
			"hold_robux":      holdRobux,
			"updated_at":      current.UpdatedAt,
		}).Error; err != nil {
			return fmt.Errorf("update statuses: %w", err)
		}

		entry, _ := current.LastHistory()
		history := mappers.ToGORMStatusHistory(id, entry)
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func toDomainTransactions(rows []models.TransactionModel) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		t, err := mappers.ToDomainTransaction(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", rows[i].ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}
