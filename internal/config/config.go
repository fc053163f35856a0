package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type FulfillmentConfig struct {
	Env           string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Storage       string `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	HTTPServer    `yaml:"http_server"`
	GRPCServer    `yaml:"grpc_server"`
	FulfillmentDB `yaml:"fulfillment_db"`
	LogConfig     `yaml:"log_config"`
	KafkaService  `yaml:"kafka_service"`
	Redis         `yaml:"redis"`
	Midtrans      `yaml:"midtrans"`
	Duitku        `yaml:"duitku"`
	App           `yaml:"app"`
	Browser       `yaml:"browser"`
	Roblox        `yaml:"roblox"`
	AutoPurchase  `yaml:"auto_purchase"`
	Chat          `yaml:"chat"`
	Mail          `yaml:"mail"`
}

type HTTPServer struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type FulfillmentDB struct {
	Dsn            string `yaml:"dsn" env:"FULFILLMENT_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"FULFILLMENT_MIGRATIONS_PATH"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"text"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type KafkaService struct {
	Enabled          bool   `yaml:"enabled" env:"KAFKA_ENABLED"`
	Host             string `yaml:"host" env:"KAFKA_HOST"`
	Port             string `yaml:"port" env:"KAFKA_PORT"`
	RealtimeTopic    string `yaml:"realtime_topic" env-default:"realtime-events"`
	StockEventsTopic string `yaml:"stock_events_topic" env-default:"stock-events"`
	GroupID          string `yaml:"group_id" env-default:"fulfillment-service"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type Midtrans struct {
	ServerKey    string `yaml:"server_key" env:"MIDTRANS_SERVER_KEY"`
	Mode         string `yaml:"mode" env:"MIDTRANS_MODE" env-default:"sandbox"`
	VerifyStatus bool   `yaml:"verify_status" env:"MIDTRANS_VERIFY_STATUS"`
}

func (m Midtrans) Production() bool { return m.Mode == "production" }

type Duitku struct {
	MerchantCode string `yaml:"merchant_code" env:"DUITKU_MERCHANT_CODE"`
	APIKey       string `yaml:"api_key" env:"DUITKU_API_KEY"`
	Mode         string `yaml:"mode" env:"DUITKU_MODE" env-default:"sandbox"`
}

// BaseURL returns the Duitku API host for the configured mode.
func (d Duitku) BaseURL() string {
	if d.Mode == "production" {
		return "https://passport.duitku.com/webapi"
	}
	return "https://sandbox.duitku.com/webapi"
}

type App struct {
	BaseURL        string `yaml:"base_url" env:"APP_BASE_URL" env-default:"http://localhost:8080"`
	InternalAPIKey string `yaml:"internal_api_key" env:"INTERNAL_API_KEY"`
	JWTSecret      string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type Browser struct {
	RemoteURL        string        `yaml:"remote_url" env:"BROWSER_REMOTE_URL"`
	ExecPath         string        `yaml:"exec_path" env:"BROWSER_EXEC_PATH"`
	RemoteBuyPassURL string        `yaml:"remote_buy_pass_url" env:"BROWSER_REMOTE_BUY_PASS_URL"`
	StepTimeout      time.Duration `yaml:"step_timeout" env-default:"10s"`
	FlowTimeout      time.Duration `yaml:"flow_timeout" env-default:"60s"`
	Locators         Locators      `yaml:"locators"`
}

// Locators override the default XPath expressions of the purchase page.
type Locators struct {
	Price   string `yaml:"price"`
	Buy     string `yaml:"buy"`
	Confirm string `yaml:"confirm"`
}

type Roblox struct {
	APIBaseURL string `yaml:"api_base_url" env-default:"https://economy.roblox.com"`
}

type AutoPurchase struct {
	PurchaseDelay  time.Duration `yaml:"purchase_delay" env-default:"3s"`
	RetryInterval  time.Duration `yaml:"retry_interval" env-default:"5m"`
	BalanceRefresh time.Duration `yaml:"balance_refresh" env-default:"15m"`
	QueueSize      int           `yaml:"queue_size" env-default:"64"`
}

type Chat struct {
	Store          string        `yaml:"store" env:"CHAT_GUARD_STORE" env-default:"memory"`
	RateLimit      int           `yaml:"rate_limit" env-default:"10"`
	RateWindow     time.Duration `yaml:"rate_window" env-default:"1m"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env-default:"5s"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env-default:"1m"`
}

type Mail struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"no-reply@localhost"`
}

func MustLoad() *FulfillmentConfig {

	// Processing env config variable and file
	configPath := os.Getenv("FULFILLMENT_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("FULFILLMENT_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object, env overrides applied by cleanenv
	var cfg FulfillmentConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
