package domain

import (
	"context"
	"time"
)

type GatewayEventStatus string

const (
	GatewayEventReceived  GatewayEventStatus = "received"
	GatewayEventProcessed GatewayEventStatus = "processed"
	GatewayEventFailed    GatewayEventStatus = "failed"
)

// GatewayEvent is the raw audit record of one verified webhook delivery.
type GatewayEvent struct {
	ID            string
	Gateway       Gateway
	CorrelationID string
	ResultCode    string
	Payload       []byte
	Signature     string
	Status        GatewayEventStatus
	Error         string
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
}

type GatewayEventLogger interface {
	LogReceived(ctx context.Context, ev *GatewayEvent) error
	MarkProcessed(ctx context.Context, id string, status GatewayEventStatus, errMsg string) error
}
