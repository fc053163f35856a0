package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func JsonOK(c *fiber.Ctx, message string, data any) error {
	return JsonStatus(c, fiber.StatusOK, message, data)
}

func JsonCreated(c *fiber.Ctx, message string, data any) error {
	return JsonStatus(c, fiber.StatusCreated, message, data)
}

func JsonStatus(c *fiber.Ctx, status int, message string, data any) error {
	if strings.TrimSpace(message) == "" {
		message = "ok"
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JsonError(c *fiber.Ctx, status int, message string) error {
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	if strings.TrimSpace(message) == "" {
		message = fiber.ErrInternalServerError.Message
	}
	return c.Status(status).JSON(ErrorResponse{Success: false, Message: message})
}
