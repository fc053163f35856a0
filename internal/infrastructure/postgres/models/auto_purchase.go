package models

import (
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"gorm.io/datatypes"
)

type AutoPurchaseProgressModel struct {
	SessionID     string             `gorm:"primaryKey"`
	Status        domain.SweepStatus `gorm:"index"`
	CurrentStep   string
	Transactions  datatypes.JSON
	StockAccounts datatypes.JSON
	Summary       datatypes.JSON
	TriggeredBy   string
	Error         string
	StartTime     time.Time `gorm:"index"`
	EndTime       *time.Time
}

func (AutoPurchaseProgressModel) TableName() string { return "auto_purchase_progresses" }
