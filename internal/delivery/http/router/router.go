package router

import (
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/handlers"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/middleware"
)

type Handlers struct {
	Webhook      *handlers.WebhookHandler
	BuyPass      *handlers.BuyPassHandler
	AutoPurchase *handlers.AutoPurchaseHandler
	Stock        *handlers.StockHandler
	Transaction  *handlers.TransactionHandler
	Chat         *handlers.ChatHandler
	Health       *handlers.HealthHandler
}

type Options struct {
	InternalKey string
	Tokens      *middleware.TokenManager
	Gatherer    prometheus.Gatherer
}

func New(h Handlers, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ReadTimeout:           90 * time.Second,
		WriteTimeout:          90 * time.Second,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Printf("[REQ] id=%v %s %s status=%d dur=%s",
			c.Locals("requestid"), c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	if h.Health != nil {
		app.Get("/health", h.Health.Health)
	}
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	if h.Webhook != nil {
		webhooks := app.Group("/webhooks", middleware.WebhookRateLimiter())
		webhooks.Get("/:gateway", h.Webhook.Ping)
		webhooks.Post("/midtrans", h.Webhook.Midtrans)
		webhooks.Post("/duitku", h.Webhook.Duitku)
	}

	internal := app.Group("/internal", middleware.RequireInternalKey(opts.InternalKey))
	if h.BuyPass != nil {
		internal.Post("/buy-pass", h.BuyPass.BuyPass)
	}
	if h.AutoPurchase != nil {
		internal.Post("/auto-purchase", h.AutoPurchase.Run)
		internal.Get("/auto-purchase/:sessionId", h.AutoPurchase.Progress)
	}
	if h.Stock != nil {
		internal.Get("/stock-accounts", h.Stock.List)
		internal.Post("/stock-accounts", h.Stock.Create)
		internal.Put("/stock-accounts/:id", h.Stock.Update)
		internal.Post("/stock-accounts/:id/refresh", h.Stock.Refresh)
	}
	if h.Transaction != nil {
		internal.Post("/transactions/:id/release-hold", h.Transaction.ReleaseHold)
	}

	if h.Chat != nil && opts.Tokens != nil {
		chat := app.Group("/chat", middleware.RequireUser(opts.Tokens))
		chat.Post("/rooms/:roomId/messages", h.Chat.SendMessage)
	}

	return app
}
