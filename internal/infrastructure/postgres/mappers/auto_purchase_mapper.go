package mappers

import (
	"encoding/json"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
)

func ToDomainAutoPurchaseProgress(model *models.AutoPurchaseProgressModel) (*domain.AutoPurchaseProgress, error) {
	p := &domain.AutoPurchaseProgress{
		SessionID:   model.SessionID,
		Status:      model.Status,
		CurrentStep: model.CurrentStep,
		TriggeredBy: model.TriggeredBy,
		Error:       model.Error,
		StartTime:   model.StartTime,
		EndTime:     model.EndTime,
	}
	if err := unmarshalJSON(model.Transactions, &p.Transactions); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(model.StockAccounts, &p.StockAccounts); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(model.Summary, &p.Summary); err != nil {
		return nil, err
	}
	return p, nil
}

func ToGORMAutoPurchaseProgress(p *domain.AutoPurchaseProgress) (*models.AutoPurchaseProgressModel, error) {
	txs, err := json.Marshal(p.Transactions)
	if err != nil {
		return nil, err
	}
	accounts, err := json.Marshal(p.StockAccounts)
	if err != nil {
		return nil, err
	}
	summary, err := json.Marshal(p.Summary)
	if err != nil {
		return nil, err
	}
	return &models.AutoPurchaseProgressModel{
		SessionID:     p.SessionID,
		Status:        p.Status,
		CurrentStep:   p.CurrentStep,
		Transactions:  datatypes.JSON(txs),
		StockAccounts: datatypes.JSON(accounts),
		Summary:       datatypes.JSON(summary),
		TriggeredBy:   p.TriggeredBy,
		Error:         p.Error,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
	}, nil
}

func unmarshalJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
