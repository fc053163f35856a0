package mappers

import (
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
)

func ToDomainTransaction(model *models.TransactionModel) (*domain.Transaction, error) {
	details, err := domain.UnmarshalServiceDetails(model.ServiceType, model.Details)
	if err != nil {
		return nil, err
	}
	history := make([]domain.StatusHistoryEntry, 0, len(model.StatusHistory))
	for _, h := range model.StatusHistory {
		history = append(history, ToDomainStatusHistory(h))
	}
	var held *domain.Reservation
	if model.HoldAccountID != "" {
		held = &domain.Reservation{AccountID: model.HoldAccountID, Robux: model.HoldRobux}
	}
	return &domain.Transaction{
		ID:                 model.ID,
		InvoiceID:          model.InvoiceID,
		UserID:             model.UserID,
		Email:              model.Email,
		RobloxUsername:     model.RobloxUsername,
		Gateway:            model.Gateway,
		CorrelationID:      model.CorrelationID,
		ServiceType:        model.ServiceType,
		ServiceCategory:    model.ServiceCategory,
		Details:            details,
		Quantity:           model.Quantity,
		UnitPrice:          model.UnitPrice,
		TotalAmount:        model.TotalAmount,
		DiscountPercentage: model.DiscountPercentage,
		DiscountAmount:     model.DiscountAmount,
		FinalAmount:        model.FinalAmount,
		PaymentStatus:      model.PaymentStatus,
		OrderStatus:        model.OrderStatus,
		HoldReason:         model.HoldReason,
		HeldReservation:    held,
		StatusHistory:      history,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}, nil
}

func ToGORMTransaction(tx *domain.Transaction) (*models.TransactionModel, error) {
	details, err := domain.MarshalServiceDetails(tx.Details)
	if err != nil {
		return nil, err
	}
	history := make([]models.TransactionStatusHistoryModel, 0, len(tx.StatusHistory))
	for _, h := range tx.StatusHistory {
		history = append(history, ToGORMStatusHistory(tx.ID, h))
	}
	model := &models.TransactionModel{
		ID:                 tx.ID,
		InvoiceID:          tx.InvoiceID,
		UserID:             tx.UserID,
		Email:              tx.Email,
		RobloxUsername:     tx.RobloxUsername,
		Gateway:            tx.Gateway,
		CorrelationID:      tx.CorrelationID,
		ServiceType:        tx.ServiceType,
		ServiceCategory:    tx.ServiceCategory,
		Details:            datatypes.JSON(details),
		Quantity:           tx.Quantity,
		UnitPrice:          tx.UnitPrice,
		TotalAmount:        tx.TotalAmount,
		DiscountPercentage: tx.DiscountPercentage,
		DiscountAmount:     tx.DiscountAmount,
		FinalAmount:        tx.FinalAmount,
		PaymentStatus:      tx.PaymentStatus,
		OrderStatus:        tx.OrderStatus,
		HoldReason:         tx.HoldReason,
		StatusHistory:      history,
		CreatedAt:          tx.CreatedAt,
		UpdatedAt:          tx.UpdatedAt,
	}
	if tx.HeldReservation != nil {
		model.HoldAccountID = tx.HeldReservation.AccountID
		model.HoldRobux = tx.HeldReservation.Robux
	}
	return model, nil
}

func ToDomainStatusHistory(model models.TransactionStatusHistoryModel) domain.StatusHistoryEntry {
	return domain.StatusHistoryEntry{
		Status:    model.Status,
		Timestamp: model.Timestamp,
		Notes:     model.Notes,
		UpdatedBy: model.UpdatedBy,
	}
}

func ToGORMStatusHistory(txID string, entry domain.StatusHistoryEntry) models.TransactionStatusHistoryModel {
	return models.TransactionStatusHistoryModel{
		TransactionID: txID,
		Status:        entry.Status,
		Notes:         entry.Notes,
		UpdatedBy:     entry.UpdatedBy,
		Timestamp:     entry.Timestamp,
	}
}
