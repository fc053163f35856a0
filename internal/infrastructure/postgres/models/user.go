package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserModel maps only the ledger columns of the storefront users table.
type UserModel struct {
	ID                string          `gorm:"primaryKey;type:uuid"`
	Email             string
	TotalSpent        decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0"`
	ResellerTier      string
	ResellerExpiresAt *time.Time
	UpdatedAt         time.Time
}

func (UserModel) TableName() string { return "users" }

// LedgerCreditModel marks a gateway order whose amount was added to total_spent.
type LedgerCreditModel struct {
	CorrelationID string          `gorm:"primaryKey"`
	UserID        string          `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(15,2);not null"`
	CreatedAt     time.Time
}

func (LedgerCreditModel) TableName() string { return "ledger_credits" }
