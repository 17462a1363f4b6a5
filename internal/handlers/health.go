package handlers

import "github.com/gofiber/fiber/v2"

// HealthHandler reports liveness plus the active compute device and
// model size. It has no side effects.
type HealthHandler struct {
	device string
	model  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(device, model string) *HealthHandler {
	return &HealthHandler{device: device, model: model}
}

// Handle processes GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"device": h.device,
		"model":  h.model,
	})
}
