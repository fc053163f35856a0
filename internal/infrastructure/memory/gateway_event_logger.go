package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
)

type GatewayEventLogger struct {
	mu     sync.Mutex
	events []domain.GatewayEvent
}

func NewGatewayEventLogger() *GatewayEventLogger {
	return &GatewayEventLogger{}
}

func (l *GatewayEventLogger) LogReceived(_ context.Context, ev *domain.GatewayEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *ev
	c.Status = domain.GatewayEventReceived
	l.events = append(l.events, c)
	return nil
}

func (l *GatewayEventLogger) MarkProcessed(_ context.Context, id string, status domain.GatewayEventStatus, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.events {
		if l.events[i].ID == id {
			now := time.Now()
			l.events[i].Status = status
			l.events[i].Error = errMsg
			l.events[i].ProcessedAt = &now
		}
	}
	return nil
}

func (l *GatewayEventLogger) Events() []domain.GatewayEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.GatewayEvent(nil), l.events...)
}
