package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rbxstore/fulfillment-service/internal/config"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/handlers"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/browser"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/gateway"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/guard"
	publisher "github.com/rbxstore/fulfillment-service/internal/infrastructure/kafka"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/logger"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/mailer"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/memory"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/metrics"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/notifier"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/repository"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/roblox"
	"gorm.io/gorm"
)

const StorageMemory = "memory"

type Dependencies struct {
	Config       *config.FulfillmentConfig
	DB           *gorm.DB
	Redis        *redis.Client
	Publisher    *publisher.DefaultKafkaPublisher
	Subscriber   *publisher.DefaultKafkaSubscriber
	Registry     *prometheus.Registry
	Metrics      *metrics.FulfillmentMetrics
	Repositories *Repositories

	Guard        domain.GuardStore
	MemoryGuard  *guard.MemoryStore
	Notifier     domain.RealtimeNotifier
	Mailer       domain.Mailer
	Balances     domain.BalanceChecker
	StatusCheck  *gateway.MidtransStatusChecker
	LocalDriver  *browser.Driver
	Driver       domain.PurchaseDriver
	HealthChecks map[string]handlers.Pinger
}

type Repositories struct {
	TxRepo        domain.TransactionRepository
	StockAccounts domain.StockAccountRepository
	Progress      domain.AutoPurchaseProgressRepository
	Chat          domain.ChatRepository
	Ledger        domain.UserLedger
	GatewayEvents domain.GatewayEventLogger
}

func InitializeDependencies(cfg *config.FulfillmentConfig) (*Dependencies, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Config:       cfg,
		Registry:     reg,
		Metrics:      metrics.NewFulfillmentMetrics(reg),
		HealthChecks: map[string]handlers.Pinger{},
	}

	if cfg.Storage == StorageMemory {
		log.Printf("⚠️  [SETUP] Using in-memory storage, data is lost on restart")
		deps.Repositories = memoryRepositories()
	} else {
		db := postgres.MustInitDB(cfg)
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql db handle: %w", err)
		}
		deps.DB = db
		deps.Repositories = postgresRepositories(db)
		deps.HealthChecks["postgres"] = PingFunc(sqlDB.PingContext)
	}

	if cfg.KafkaService.Enabled {
		brokers := []string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)}
		deps.Publisher = publisher.NewDefaultKafkaPublisher(brokers)
		deps.Subscriber = publisher.NewDefaultKafkaSubscriber(brokers)
		deps.Notifier = notifier.NewKafkaNotifier(deps.Publisher, cfg.KafkaService.RealtimeTopic)
	} else {
		deps.Notifier = notifier.LogNotifier{}
	}

	if err := initGuard(deps); err != nil {
		return nil, fmt.Errorf("chat guard: %w", err)
	}

	if cfg.Mail.Host != "" {
		deps.Mailer = mailer.NewSMTPMailer(cfg.Mail)
	} else {
		deps.Mailer = mailer.LogMailer{}
	}

	deps.Balances = roblox.NewEconomyClient(cfg.Roblox.APIBaseURL)
	if cfg.Midtrans.ServerKey != "" {
		deps.StatusCheck = gateway.NewMidtransStatusChecker(cfg.Midtrans.ServerKey, cfg.Midtrans.Production())
	}

	deps.LocalDriver = browser.NewDriver(
		browser.ChromeLauncher{
			RemoteURL: cfg.Browser.RemoteURL,
			Resolver:  browser.NewExecResolver(cfg.Browser.ExecPath),
		},
		browser.NewLocator(cfg.Browser.Locators),
		browser.WithTimeouts(cfg.Browser.StepTimeout, cfg.Browser.FlowTimeout),
	)
	if cfg.Browser.RemoteBuyPassURL != "" {
		log.Printf("🌐 [SETUP] Purchases delegated to %s", cfg.Browser.RemoteBuyPassURL)
		deps.Driver = browser.NewRemoteDriver(cfg.Browser.RemoteBuyPassURL, cfg.App.InternalAPIKey, cfg.Browser.FlowTimeout)
	} else {
		deps.Driver = deps.LocalDriver
	}

	return deps, nil
}

func memoryRepositories() *Repositories {
	return &Repositories{
		TxRepo:        memory.NewTransactionRepository(),
		StockAccounts: memory.NewStockAccountRepository(),
		Progress:      memory.NewAutoPurchaseProgressRepository(),
		Chat:          memory.NewChatRepository(),
		Ledger:        memory.NewUserLedger(),
		GatewayEvents: memory.NewGatewayEventLogger(),
	}
}

func postgresRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		TxRepo:        repository.NewDefaultTransactionRepository(db),
		StockAccounts: repository.NewDefaultStockAccountRepository(db),
		Progress:      repository.NewDefaultAutoPurchaseProgressRepository(db),
		Chat:          repository.NewDefaultChatRepository(db),
		Ledger:        repository.NewDefaultUserLedger(db),
		GatewayEvents: logger.NewPGGatewayEventLogger(db),
	}
}

func initGuard(deps *Dependencies) error {
	cfg := deps.Config
	if cfg.Chat.Store != "redis" {
		deps.MemoryGuard = guard.NewMemoryStore()
		deps.Guard = deps.MemoryGuard
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	deps.Redis = client
	deps.Guard = guard.NewRedisStore(client)
	deps.HealthChecks["redis"] = PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return nil
}

// PingFunc adapts a plain function to handlers.Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Close releases the connections opened by InitializeDependencies.
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			log.Printf("kafka publisher close: %v", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
