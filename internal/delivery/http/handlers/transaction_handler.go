package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// HoldReleaser clears operator holds on transactions.
type HoldReleaser interface {
	ReleaseHold(ctx context.Context, txID, actor string, resolution domain.HoldResolution) (*domain.Transaction, error)
}

type releaseHoldRequest struct {
	Resolution string `json:"resolution"`
}

type TransactionHandler struct {
	Holds HoldReleaser
}

func NewTransactionHandler(holds HoldReleaser) *TransactionHandler {
	return &TransactionHandler{Holds: holds}
}

// ReleaseHold takes an optional {"resolution": "retry"|"purchased"} body.
// Without one the hold is released for retry.
func (h *TransactionHandler) ReleaseHold(c *fiber.Ctx) error {
	var req releaseHoldRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return JsonError(c, fiber.StatusBadRequest, "Body tidak valid")
		}
	}
	tx, err := h.Holds.ReleaseHold(c.UserContext(), c.Params("id"), actor(c), domain.HoldResolution(req.Resolution))
	if err != nil {
		return WriteError(c, err)
	}
	return JsonOK(c, "Hold dilepas", fiber.Map{
		"id":            tx.ID,
		"invoiceId":     tx.InvoiceID,
		"orderStatus":   tx.OrderStatus,
		"paymentStatus": tx.PaymentStatus,
	})
}
