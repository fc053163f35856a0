package handlers

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/webhook"
	"github.com/rbxstore/fulfillment-service/internal/domain"
	"github.com/rbxstore/fulfillment-service/internal/usecase/payment"
)

type WebhookHandler struct {
	Payments payment.PaymentUsecase
	Validate *validator.Validate
}

func NewWebhookHandler(payments payment.PaymentUsecase, validate *validator.Validate) *WebhookHandler {
	return &WebhookHandler{Payments: payments, Validate: validate}
}

// Ping answers GET requests from gateway dashboards.
func (h *WebhookHandler) Ping(c *fiber.Ctx) error {
	return JsonOK(c, "Webhook endpoint aktif", fiber.Map{
		"gateway": c.Params("gateway"),
		"time":    time.Now().UTC(),
	})
}

func (h *WebhookHandler) Midtrans(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)
	var body webhook.MidtransNotification
	if err := c.BodyParser(&body); err != nil {
		return JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := h.Validate.Struct(body); err != nil {
		return WriteValidationError(c, err)
	}

	result, err := h.Payments.HandleWebhook(c.UserContext(), payment.Notification{
		Gateway:           domain.GatewayMidtrans,
		CorrelationID:     body.OrderID,
		GrossAmount:       body.GrossAmount,
		Signature:         body.SignatureKey,
		StatusCode:        body.StatusCode,
		TransactionStatus: body.TransactionStatus,
		FraudStatus:       body.FraudStatus,
		Raw:               raw,
	})
	if err != nil {
		log.Printf("❌ [WEBHOOK] midtrans %s: %v", body.OrderID, err)
		return WriteError(c, err)
	}
	return JsonOK(c, "Webhook diproses", result)
}

func (h *WebhookHandler) Duitku(c *fiber.Ctx) error {
	raw := append([]byte(nil), c.Body()...)
	var body webhook.DuitkuCallback
	if err := c.BodyParser(&body); err != nil {
		return JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := h.Validate.Struct(body); err != nil {
		return WriteValidationError(c, err)
	}

	result, err := h.Payments.HandleWebhook(c.UserContext(), payment.Notification{
		Gateway:       domain.GatewayDuitku,
		CorrelationID: body.MerchantOrderID,
		GrossAmount:   body.Amount,
		Signature:     body.Signature,
		MerchantCode:  body.MerchantCode,
		ResultCode:    body.ResultCode,
		Raw:           raw,
	})
	if err != nil {
		log.Printf("❌ [WEBHOOK] duitku %s: %v", body.MerchantOrderID, err)
		return WriteError(c, err)
	}
	return JsonOK(c, "Webhook diproses", result)
}
