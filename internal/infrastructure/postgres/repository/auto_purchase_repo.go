package repository

import (
	"context"
	"errors"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/mappers"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultAutoPurchaseProgressRepository struct {
	DB *gorm.DB
}

func NewDefaultAutoPurchaseProgressRepository(db *gorm.DB) *DefaultAutoPurchaseProgressRepository {
	return &DefaultAutoPurchaseProgressRepository{DB: db}
}

func (r *DefaultAutoPurchaseProgressRepository) Create(ctx context.Context, p *domain.AutoPurchaseProgress) error {
	model, err := mappers.ToGORMAutoPurchaseProgress(p)
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Create(model).Error
}

func (r *DefaultAutoPurchaseProgressRepository) Save(ctx context.Context, p *domain.AutoPurchaseProgress) error {
	model, err := mappers.ToGORMAutoPurchaseProgress(p)
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Save(model).Error
}

func (r *DefaultAutoPurchaseProgressRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.AutoPurchaseProgress, error) {
	var model models.AutoPurchaseProgressModel
	if err := r.DB.WithContext(ctx).First(&model, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return mappers.ToDomainAutoPurchaseProgress(&model)
}
