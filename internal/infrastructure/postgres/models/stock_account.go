package models

import (
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type StockAccountModel struct {
	ID            string                    `gorm:"primaryKey;type:uuid"`
	Username      string                    `gorm:"uniqueIndex;not null"`
	RobloxCookie  string                    `gorm:"not null"`
	Robux         int64                     `gorm:"not null;default:0"`
	ReservedRobux int64                     `gorm:"not null;default:0"`
	Status        domain.StockAccountStatus `gorm:"index;not null"`
	LastChecked   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (StockAccountModel) TableName() string { return "stock_accounts" }
