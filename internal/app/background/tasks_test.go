package background

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/usecase/autopurchase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSweeps struct {
	mu       sync.Mutex
	triggers []string
}

func (r *recordingSweeps) RunSweep(_ context.Context, triggeredBy string) (*autopurchase.SweepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, triggeredBy)
	return &autopurchase.SweepResult{Success: true}, nil
}

func (r *recordingSweeps) GetProgress(context.Context, string) (*domain.AutoPurchaseProgress, error) {
	return nil, domain.ErrSessionNotFound
}

func (r *recordingSweeps) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.triggers...)
}

type chanSubscriber struct {
	ch    chan domain.Message
	topic string
}

func (s *chanSubscriber) Subscribe(_ context.Context, topic, _ string) (<-chan domain.Message, error) {
	s.topic = topic
	return s.ch, nil
}

func TestStockEventsTriggerSweep(t *testing.T) {
	sweeps := &recordingSweeps{}
	sub := &chanSubscriber{ch: make(chan domain.Message, 3)}
	bt := &BackgroundTasks{AutoPurchase: sweeps, Subscriber: sub, StockTopic: "stock-events", GroupID: "g"}

	sub.ch <- domain.Message{Key: []byte("acc-1"), Value: []byte(`{"account_id":"acc-1","action":"created","actor":"ops"}`)}
	sub.ch <- domain.Message{Key: []byte("bad"), Value: []byte(`not json`)}
	sub.ch <- domain.Message{Key: []byte("acc-2"), Value: []byte(`{"account_id":"acc-2","action":"refreshed"}`)}
	close(sub.ch)

	bt.startStockEvents(context.Background())

	assert.Equal(t, "stock-events", sub.topic)
	assert.Equal(t, []string{"stock:created:acc-1", "stock:refreshed:acc-2"}, sweeps.seen())
}

type countingGuard struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGuard) Sweep(time.Time) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
}

func (g *countingGuard) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestGuardSweepRunsOnTicker(t *testing.T) {
	g := &countingGuard{}
	bt := &BackgroundTasks{Guard: g, Intervals: Intervals{GuardSweep: 5 * time.Millisecond}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bt.startGuardSweep(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return g.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestSweepRetryRunsAtStartup(t *testing.T) {
	sweeps := &recordingSweeps{}
	bt := &BackgroundTasks{AutoPurchase: sweeps, Intervals: Intervals{SweepRetry: time.Hour}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bt.startSweepRetry(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sweeps.seen()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"system:startup"}, sweeps.seen())
}
