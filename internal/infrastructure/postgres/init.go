package postgres

import (
	"log"

	"github.com/rbxstore/fulfillment-service/internal/config"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/migrate"
	"github.com/rbxstore/fulfillment-service/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func MustInitDB(cfg *config.FulfillmentConfig) *gorm.DB {
	dsn := cfg.FulfillmentDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	if cfg.FulfillmentDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(db, cfg.FulfillmentDB.MigrationsPath); err != nil {
			log.Fatalf("failed to run migrations: %v\n", err)
		}
		return db
	}

	if err := db.AutoMigrate(
		&models.TransactionModel{},
		&models.TransactionStatusHistoryModel{},
		&models.StockAccountModel{},
		&models.AutoPurchaseProgressModel{},
		&models.UserModel{},
		&models.LedgerCreditModel{},
		&models.ChatMessageModel{},
		&models.ChatRoomModel{},
		&models.GatewayEventModel{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v\n", err)
	}

	return db
}
