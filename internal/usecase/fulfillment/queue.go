package fulfillment

import (
	"context"
	"log"
	"log/slog"
	"runtime/debug"
)

// TransactionFulfiller is the part of the orchestrator the queue drives.
type TransactionFulfiller interface {
	FulfillByID(ctx context.Context, id string) error
	// Park hands a transaction over to the sweep backlog.
	Park(ctx context.Context, id string) error
}

// Queue feeds settled transactions to a single worker so purchases run one
// at a time outside the webhook request.
type Queue struct {
	fulfiller TransactionFulfiller
	jobs      chan string
}

func NewQueue(fulfiller TransactionFulfiller, size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{fulfiller: fulfiller, jobs: make(chan string, size)}
}

// Enqueue never blocks. It reports false when the queue is full.
func (q *Queue) Enqueue(transactionID string) bool {
	select {
	case q.jobs <- transactionID:
		return true
	default:
		return false
	}
}

func (q *Queue) Len() int { return len(q.jobs) }

// Run processes jobs until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	log.Printf("🚚 [QUEUE] Fulfillment worker started (capacity %d)", cap(q.jobs))
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case id := <-q.jobs:
			q.process(ctx, id)
		}
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("queued fulfillment panicked", "transaction_id", id, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if err := q.fulfiller.FulfillByID(ctx, id); err != nil {
		slog.Warn("queued fulfillment failed", "transaction_id", id, "error", err)
	}
}

func (q *Queue) drain() {
	parked := 0
	for {
		select {
		case id := <-q.jobs:
			if err := q.fulfiller.Park(context.Background(), id); err != nil {
				slog.Error("park queued transaction failed", "transaction_id", id, "error", err)
				continue
			}
			parked++
		default:
			log.Printf("🛑 [QUEUE] Fulfillment worker stopped, %d job(s) parked for the sweep", parked)
			return
		}
	}
}
