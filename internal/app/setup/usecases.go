package setup

import (
	"fmt"

	"github.com/rbxstore/fulfillment-service/internal/domain"
	publisher "github.com/rbxstore/fulfillment-service/internal/infrastructure/kafka"
	"github.com/rbxstore/fulfillment-service/internal/usecase/autopurchase"
	"github.com/rbxstore/fulfillment-service/internal/usecase/chat"
	"github.com/rbxstore/fulfillment-service/internal/usecase/fulfillment"
	"github.com/rbxstore/fulfillment-service/internal/usecase/payment"
	"github.com/rbxstore/fulfillment-service/internal/usecase/stock"
)

type UseCases struct {
	Allocator    *fulfillment.Allocator
	Orchestrator *fulfillment.Orchestrator
	Queue        *fulfillment.Queue
	Payment      *payment.DefaultPaymentUsecase
	AutoPurchase *autopurchase.DefaultAutoPurchaseUsecase
	Stock        *stock.DefaultStockUsecase
	Chat         *chat.DefaultChatUsecase
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	cfg := deps.Config
	repos := deps.Repositories

	allocator := fulfillment.NewAllocator(repos.StockAccounts, deps.Balances, deps.Metrics)
	orchestrator := fulfillment.NewOrchestrator(repos.TxRepo, repos.StockAccounts, allocator, deps.Driver, deps.Metrics)
	queue := fulfillment.NewQueue(orchestrator, cfg.AutoPurchase.QueueSize)

	var statusChecker payment.StatusChecker
	if deps.StatusCheck != nil {
		statusChecker = deps.StatusCheck
	}
	paymentUsecase := payment.NewDefaultPaymentUsecase(
		payment.Config{
			MidtransServerKey:    cfg.Midtrans.ServerKey,
			DuitkuMerchantCode:   cfg.Duitku.MerchantCode,
			DuitkuAPIKey:         cfg.Duitku.APIKey,
			VerifyMidtransStatus: cfg.Midtrans.VerifyStatus,
		},
		repos.TxRepo,
		repos.Ledger,
		deps.Mailer,
		repos.GatewayEvents,
		queue,
		statusChecker,
		deps.Metrics,
	)

	autoPurchaseUsecase, err := autopurchase.NewDefaultAutoPurchaseUsecase(
		repos.TxRepo,
		repos.StockAccounts,
		repos.Progress,
		orchestrator,
		allocator,
		cfg.AutoPurchase.PurchaseDelay,
		deps.Metrics,
	)
	if err != nil {
		return nil, fmt.Errorf("auto purchase usecase: %w", err)
	}

	// With a broker every instance hears stock changes through the
	// subscriber; without one the local sweep is triggered directly.
	var stockEvents domain.StockEventSink = autoPurchaseUsecase
	if deps.Publisher != nil {
		stockEvents = publisher.StockEventPublisher{
			Publisher: deps.Publisher,
			Topic:     cfg.KafkaService.StockEventsTopic,
		}
	}
	stockUsecase := stock.NewDefaultStockUsecase(repos.StockAccounts, allocator, stockEvents)

	chatUsecase := chat.NewDefaultChatUsecase(
		chat.Config{
			RateLimit:      cfg.Chat.RateLimit,
			RateWindow:     cfg.Chat.RateWindow,
			IdempotencyTTL: cfg.Chat.IdempotencyTTL,
		},
		repos.Chat,
		deps.Guard,
		deps.Notifier,
		deps.Metrics,
	)

	return &UseCases{
		Allocator:    allocator,
		Orchestrator: orchestrator,
		Queue:        queue,
		Payment:      paymentUsecase,
		AutoPurchase: autoPurchaseUsecase,
		Stock:        stockUsecase,
		Chat:         chatUsecase,
	}, nil
}
