package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rbxstore/fulfillment-service/internal/usecase/autopurchase"
)

type AutoPurchaseHandler struct {
	Sweeps autopurchase.AutoPurchaseUsecase
}

func NewAutoPurchaseHandler(sweeps autopurchase.AutoPurchaseUsecase) *AutoPurchaseHandler {
	return &AutoPurchaseHandler{Sweeps: sweeps}
}

// Run executes a sweep inside the request and returns its summary.
func (h *AutoPurchaseHandler) Run(c *fiber.Ctx) error {
	result, err := h.Sweeps.RunSweep(c.UserContext(), "http:"+c.IP())
	if err != nil {
		if result != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(result)
		}
		return WriteError(c, err)
	}
	if result.AlreadyRunning {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}
	return c.JSON(result)
}

func (h *AutoPurchaseHandler) Progress(c *fiber.Ctx) error {
	progress, err := h.Sweeps.GetProgress(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		return WriteError(c, err)
	}
	return JsonOK(c, "", fiber.Map{
		"sessionId":     progress.SessionID,
		"status":        progress.Status,
		"currentStep":   progress.CurrentStep,
		"transactions":  progress.Transactions,
		"stockAccounts": progress.StockAccounts,
		"summary":       progress.Summary,
		"triggeredBy":   progress.TriggeredBy,
		"error":         progress.Error,
		"startTime":     progress.StartTime,
		"endTime":       progress.EndTime,
	})
}
