package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
)

// ReadinessChecker reports the model lifecycle.
type ReadinessChecker interface {
	Status() model.Status
}

type HealthHandler struct {
	readiness ReadinessChecker
}

func NewHealthHandler(readiness ReadinessChecker) *HealthHandler {
	return &HealthHandler{readiness: readiness}
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadyResponse struct {
	Status string       `json:"status"`
	Model  model.Status `json:"model"`
}

// Health is a liveness probe and never depends on the model.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "healthy"})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	st := h.readiness.Status()
	if st.State != model.StateReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ReadyResponse{
			Status: "not_ready",
			Model:  st,
		})
	}
	return c.JSON(ReadyResponse{
		Status: "ready",
		Model:  st,
	})
}
