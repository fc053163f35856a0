package mappers

import (
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
)

func ToDomainStockAccount(model *models.StockAccountModel) *domain.StockAccount {
	return &domain.StockAccount{
		ID:            model.ID,
		Username:      model.Username,
		RobloxCookie:  model.RobloxCookie,
		Robux:         model.Robux,
		ReservedRobux: model.ReservedRobux,
		Status:        model.Status,
		LastChecked:   model.LastChecked,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func ToGORMStockAccount(account *domain.StockAccount) *models.StockAccountModel {
	return &models.StockAccountModel{
		ID:            account.ID,
		Username:      account.Username,
		RobloxCookie:  account.RobloxCookie,
		Robux:         account.Robux,
		ReservedRobux: account.ReservedRobux,
		Status:        account.Status,
		LastChecked:   account.LastChecked,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}
}
