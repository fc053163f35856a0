package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rbxstore/fulfillment-service/internal/delivery/http/dto/buypass"
	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// BuyPassHandler exposes the local browser driver to other instances.
type BuyPassHandler struct {
	Driver   domain.PurchaseDriver
	Validate *validator.Validate
}

func NewBuyPassHandler(driver domain.PurchaseDriver, validate *validator.Validate) *BuyPassHandler {
	return &BuyPassHandler{Driver: driver, Validate: validate}
}

func (h *BuyPassHandler) BuyPass(c *fiber.Ctx) error {
	var req buypass.BuyPassRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(buypass.BuyPassResponse{Message: "Payload tidak valid"})
	}
	if err := h.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(buypass.BuyPassResponse{Message: "Data pembelian tidak lengkap"})
	}

	err := h.Driver.Purchase(c.UserContext(), domain.PurchaseRequest{
		Cookie:        req.Credential,
		ProductID:     req.ProductID,
		ProductName:   req.ProductName,
		ExpectedPrice: req.Price,
	})
	if err == nil {
		log.Printf("✅ [BUYPASS] Purchased %s (%s)", req.ProductName, req.ProductID)
		return c.JSON(buypass.BuyPassResponse{Success: true, Message: "Gamepass berhasil dibeli"})
	}

	log.Printf("❌ [BUYPASS] %s (%s): %v", req.ProductName, req.ProductID, err)
	pe, ok := domain.AsPurchaseError(err)
	if !ok {
		return c.Status(fiber.StatusBadGateway).JSON(buypass.BuyPassResponse{Message: "Pembelian gagal"})
	}
	if pe.Kind == domain.KindPriceMismatch {
		expected, actual := pe.Expected, pe.Actual
		return c.Status(fiber.StatusConflict).JSON(buypass.BuyPassResponse{
			Message:       "Harga gamepass tidak sesuai",
			Kind:          string(pe.Kind),
			ExpectedPrice: &expected,
			ActualPrice:   &actual,
		})
	}
	return c.Status(fiber.StatusBadGateway).JSON(buypass.BuyPassResponse{
		Message: "Pembelian gagal: " + string(pe.Kind),
		Kind:    string(pe.Kind),
	})
}
