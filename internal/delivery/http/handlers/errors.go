package handlers

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rbxstore/fulfillment-service/internal/domain"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrUnknownServiceType):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrStockAccountNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrMessageNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNoHold),
		errors.Is(err, domain.ErrNotFulfillable),
		errors.Is(err, domain.ErrDuplicateInFlight):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidCookie):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// WriteError renders err. Server errors are logged and replaced by a
// generic message.
func WriteError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "request_id", c.Locals("requestid"), "error", err)
		return JsonError(c, status, "Terjadi kesalahan pada server")
	}
	return JsonError(c, status, err.Error())
}

// WriteValidationError lists failing fields by their JSON name.
func WriteValidationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Success: false,
		Message: "validation failed",
		Errors:  fields,
	})
}
