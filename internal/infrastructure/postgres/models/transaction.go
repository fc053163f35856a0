package models

import (
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionModel struct {
	ID                 string               `gorm:"primaryKey;type:uuid"`
	InvoiceID          string               `gorm:"uniqueIndex;not null"`
	UserID             string               `gorm:"index"`
	Email              string
	RobloxUsername     string
	Gateway            domain.Gateway
	CorrelationID      string               `gorm:"index:idx_transactions_correlation_id"`
	ServiceType        domain.ServiceType
	ServiceCategory    string               `gorm:"index:idx_transactions_fulfillable"`
	Details            datatypes.JSON
	Quantity           int64
	UnitPrice          decimal.Decimal      `gorm:"type:numeric(15,2)"`
	TotalAmount        decimal.Decimal      `gorm:"type:numeric(15,2)"`
	DiscountPercentage decimal.Decimal      `gorm:"type:numeric(5,2)"`
	DiscountAmount     decimal.Decimal      `gorm:"type:numeric(15,2)"`
	FinalAmount        decimal.Decimal      `gorm:"type:numeric(15,2)"`
	PaymentStatus      domain.PaymentStatus `gorm:"index:idx_transactions_fulfillable"`
	OrderStatus        domain.OrderStatus   `gorm:"index:idx_transactions_fulfillable"`
	HoldReason         string
	HoldAccountID      string
	HoldRobux          int64
	StatusHistory      []TransactionStatusHistoryModel `gorm:"foreignKey:TransactionID;references:ID"`
	CreatedAt          time.Time                       `gorm:"index:idx_transactions_created_at"`
	UpdatedAt          time.Time
}

func (TransactionModel) TableName() string { return "transactions" }

// TransactionStatusHistoryModel rows are insert-only.
type TransactionStatusHistoryModel struct {
	ID            uint               `gorm:"primaryKey"`
	TransactionID string             `gorm:"type:uuid;index;not null"`
	Status        domain.OrderStatus `gorm:"not null"`
	Notes         string
	UpdatedBy     string
	Timestamp     time.Time `gorm:"not null"`
}

func (TransactionStatusHistoryModel) TableName() string { return "transaction_status_histories" }
