package logger

import (
	"context"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PGGatewayEventLogger keeps an audit row for every verified webhook delivery.
type PGGatewayEventLogger struct {
	db *gorm.DB
}

func NewPGGatewayEventLogger(db *gorm.DB) *PGGatewayEventLogger {
	return &PGGatewayEventLogger{db: db}
}

func (l *PGGatewayEventLogger) LogReceived(ctx context.Context, ev *domain.GatewayEvent) error {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return l.db.WithContext(ctx).Create(&models.GatewayEventModel{
		ID:            ev.ID,
		Gateway:       ev.Gateway,
		CorrelationID: ev.CorrelationID,
		ResultCode:    ev.ResultCode,
		Payload:       datatypes.JSON(payload),
		Signature:     ev.Signature,
		Status:        domain.GatewayEventReceived,
		ReceivedAt:    ev.ReceivedAt,
	}).Error
}

func (l *PGGatewayEventLogger) MarkProcessed(ctx context.Context, id string, status domain.GatewayEventStatus, errMsg string) error {
	now := time.Now()
	return l.db.WithContext(ctx).Model(&models.GatewayEventModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"error":        errMsg,
			"processed_at": now,
		}).Error
}
