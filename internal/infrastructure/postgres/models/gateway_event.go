package models

import (
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"gorm.io/datatypes"
)

type GatewayEventModel struct {
	ID            string                    `gorm:"primaryKey;type:uuid"`
	Gateway       domain.Gateway            `gorm:"index:idx_gateway_events_lookup"`
	CorrelationID string                    `gorm:"index:idx_gateway_events_lookup"`
	ResultCode    string
	Payload       datatypes.JSON
	Signature     string
	Status        domain.GatewayEventStatus `gorm:"index"`
	Error         string
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
}

func (GatewayEventModel) TableName() string { return "gateway_events" }
