package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/desk-relay/internal/observability"
)

// HealthHandler serves liveness, readiness and metrics checks.
type HealthHandler struct {
	serviceName string
	version     string
	missing     func() []string
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance. missing reports the
// required settings that are not configured.
func NewHealthHandler(serviceName, version string, missing func() []string, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, missing: missing, metrics: metrics}
}

// Root GET /.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("Server is running!")
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports whether every required setting is present.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	var missing []string
	if h.missing != nil {
		missing = h.missing()
	}
	if len(missing) == 0 {
		return c.JSON(fiber.Map{"status": "ready"})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "CONFIGURATION_INCOMPLETE",
			"message": "one or more required settings are missing",
			"details": fiber.Map{"missing": missing},
		},
	})
}

// Metrics GET /health/metrics.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
