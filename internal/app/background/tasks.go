package background

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/usecase/autopurchase"
)

type QueueRunner interface {
	Run(ctx context.Context)
}

type BalanceRefresher interface {
	RefreshAll(ctx context.Context) ([]*domain.StockAccount, error)
}

// GuardSweeper prunes expired rate limit and idempotency entries.
type GuardSweeper interface {
	Sweep(now time.Time)
}

type Intervals struct {
	SweepRetry     time.Duration
	BalanceRefresh time.Duration
	GuardSweep     time.Duration
}

type BackgroundTasks struct {
	Queue        QueueRunner
	AutoPurchase autopurchase.AutoPurchaseUsecase
	Refresher    BalanceRefresher
	Guard        GuardSweeper
	Subscriber   domain.SubscriberPort

	StockTopic string
	GroupID    string
	Intervals  Intervals
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.Queue.Run(ctx)
	go bt.startSweepRetry(ctx)
	go bt.startBalanceRefresh(ctx)
	if bt.Guard != nil {
		go bt.startGuardSweep(ctx)
	}
	if bt.Subscriber != nil {
		go bt.startStockEvents(ctx)
	}
}

// startSweepRetry picks up transactions parked by a full queue, a missing
// stock account or a restart.
func (bt *BackgroundTasks) startSweepRetry(ctx context.Context) {
	if bt.Intervals.SweepRetry <= 0 {
		return
	}
	ticker := time.NewTicker(bt.Intervals.SweepRetry)
	defer ticker.Stop()

	bt.runSweep(ctx, "system:startup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.runSweep(ctx, "system:retry")
		}
	}
}

func (bt *BackgroundTasks) runSweep(ctx context.Context, trigger string) {
	res, err := bt.AutoPurchase.RunSweep(ctx, trigger)
	if err != nil {
		log.Printf("Auto purchase sweep error (%s): %v\n", trigger, err)
		return
	}
	if res.Processed+res.Failed+res.Skipped > 0 {
		log.Printf("Auto purchase sweep (%s): %s\n", trigger, res.Message)
	}
}

func (bt *BackgroundTasks) startBalanceRefresh(ctx context.Context) {
	if bt.Intervals.BalanceRefresh <= 0 {
		return
	}
	ticker := time.NewTicker(bt.Intervals.BalanceRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accounts, err := bt.Refresher.RefreshAll(ctx)
			if err != nil {
				log.Printf("Stock balance refresh failed: %v", err)
				continue
			}
			log.Printf("Stock balances refreshed: %d active account(s)", len(accounts))
		}
	}
}

func (bt *BackgroundTasks) startGuardSweep(ctx context.Context) {
	interval := bt.Intervals.GuardSweep
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			bt.Guard.Sweep(now)
		}
	}
}

// startStockEvents triggers a sweep for every stock change published by any
// instance. Overlapping triggers collapse into the running sweep.
func (bt *BackgroundTasks) startStockEvents(ctx context.Context) {
	msgs, err := bt.Subscriber.Subscribe(ctx, bt.StockTopic, bt.GroupID)
	if err != nil {
		log.Printf("Stock events subscription failed: %v", err)
		return
	}
	log.Printf("📡 [STOCK] Listening on %s", bt.StockTopic)
	for msg := range msgs {
		var ev domain.StockEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Printf("Malformed stock event %q: %v", msg.Key, err)
			continue
		}
		bt.runSweep(ctx, "stock:"+ev.Action+":"+ev.AccountID)
	}
}
