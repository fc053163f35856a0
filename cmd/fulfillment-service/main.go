package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rbxstore/fulfillment-service/internal/app/background"
	"github.com/rbxstore/fulfillment-service/internal/app/setup"
	"github.com/rbxstore/fulfillment-service/internal/config"
	"github.com/rbxstore/fulfillment-service/internal/delivery/grpcapi"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/handlers"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/middleware"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/router"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()
	slog.SetDefault(logger.New(cfg.Env, cfg.LogConfig))

	deps, err := setup.InitializeDependencies(cfg)
	if err != nil {
		log.Fatalf("failed to init dependencies: %v", err)
	}
	defer deps.Close()

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		log.Fatalf("failed to init usecases: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks := &background.BackgroundTasks{
		Queue:        uc.Queue,
		AutoPurchase: uc.AutoPurchase,
		Refresher:    uc.Allocator,
		StockTopic:   cfg.KafkaService.StockEventsTopic,
		GroupID:      cfg.KafkaService.GroupID,
		Intervals: background.Intervals{
			SweepRetry:     cfg.AutoPurchase.RetryInterval,
			BalanceRefresh: cfg.AutoPurchase.BalanceRefresh,
			GuardSweep:     cfg.Chat.SweepInterval,
		},
	}
	if deps.MemoryGuard != nil {
		tasks.Guard = deps.MemoryGuard
	}
	if deps.Subscriber != nil {
		tasks.Subscriber = deps.Subscriber
	}
	tasks.StartAll(ctx)

	validate := handlers.NewValidator()
	var tokens *middleware.TokenManager
	if cfg.App.JWTSecret != "" {
		tokens = middleware.NewTokenManager(cfg.App.JWTSecret, 24*time.Hour)
	} else {
		slog.Warn("JWT_SECRET not set, chat routes disabled")
	}
	app := router.New(router.Handlers{
		Webhook:      handlers.NewWebhookHandler(uc.Payment, validate),
		BuyPass:      handlers.NewBuyPassHandler(deps.LocalDriver, validate),
		AutoPurchase: handlers.NewAutoPurchaseHandler(uc.AutoPurchase),
		Stock:        handlers.NewStockHandler(uc.Stock, validate),
		Transaction:  handlers.NewTransactionHandler(uc.Orchestrator),
		Chat:         handlers.NewChatHandler(uc.Chat, validate),
		Health:       &handlers.HealthHandler{Checks: deps.HealthChecks},
	}, router.Options{
		InternalKey: cfg.App.InternalAPIKey,
		Tokens:      tokens,
		Gatherer:    deps.Registry,
	})

	healthServer := grpcapi.NewHealthServer(deps.HealthChecks)
	go healthServer.Watch(ctx, 15*time.Second)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go func() {
		log.Printf("gRPC health server started on %s:%s\n", cfg.GRPCServer.Host, cfg.GRPCServer.Port)
		if err := healthServer.Serve(lis); err != nil {
			log.Printf("gRPC server stopped: %v\n", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port)
		log.Printf("HTTP server started on %s\n", addr)
		if err := app.Listen(addr); err != nil {
			log.Printf("HTTP server stopped: %v\n", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	healthServer.Stop()
	// Give the queue worker a moment to park what it still holds.
	time.Sleep(500 * time.Millisecond)
}
