package domain

import (
	"context"
	"time"
)

type SweepStatus string

const (
	SweepRunning   SweepStatus = "running"
	SweepCompleted SweepStatus = "completed"
	SweepFailed    SweepStatus = "failed"
)

type ProgressItemStatus string

const (
	ItemPending    ProgressItemStatus = "pending"
	ItemProcessing ProgressItemStatus = "processing"
	ItemCompleted  ProgressItemStatus = "completed"
	ItemFailed     ProgressItemStatus = "failed"
	ItemSkipped    ProgressItemStatus = "skipped"
)

type ProgressItem struct {
	InvoiceID     string             `json:"invoiceId"`
	TransactionID string             `json:"transactionId"`
	Status        ProgressItemStatus `json:"status"`
	UsedAccount   string             `json:"usedAccount,omitempty"`
	Error         string             `json:"error,omitempty"`
}

type StockSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Robux    int64  `json:"robux"`
}

type SweepSummary struct {
	TotalTransactions int `json:"totalTransactions"`
	ProcessedCount    int `json:"processedCount"`
	SkippedCount      int `json:"skippedCount"`
	FailedCount       int `json:"failedCount"`
}

// AutoPurchaseProgress is the point-in-time report of one sweep run.
type AutoPurchaseProgress struct {
	SessionID     string
	Status        SweepStatus
	CurrentStep   string
	Transactions  []ProgressItem
	StockAccounts []StockSnapshot
	Summary       SweepSummary
	TriggeredBy   string
	Error         string
	StartTime     time.Time
	EndTime       *time.Time
}

func (p *AutoPurchaseProgress) Item(txID string) *ProgressItem {
	for i := range p.Transactions {
		if p.Transactions[i].TransactionID == txID {
			return &p.Transactions[i]
		}
	}
	return nil
}

type AutoPurchaseProgressRepository interface {
	Create(ctx context.Context, p *AutoPurchaseProgress) error
	Save(ctx context.Context, p *AutoPurchaseProgress) error
	GetBySessionID(ctx context.Context, sessionID string) (*AutoPurchaseProgress, error)
}
