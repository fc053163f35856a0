package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is any dependency whose liveness is part of /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Checks map[string]Pinger
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	components := make(map[string]string, len(h.Checks))
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			components[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}
	return c.Status(status).JSON(fiber.Map{
		"success":    status == fiber.StatusOK,
		"components": components,
		"time":       time.Now().UTC(),
	})
}
