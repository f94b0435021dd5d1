package rest

import (
	"context"
	"time"

	"github.com/AzielCF/az-connect/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports "ok" or a short failure description for one dependency.
type HealthCheck func(ctx context.Context) string

type Health struct {
	Version string
	Checks  map[string]HealthCheck
}

func InitRestHealth(app fiber.Router, version string, checks map[string]HealthCheck) Health {
	handler := Health{Version: version, Checks: checks}

	group := app.Group("/health")
	group.Get("/status", handler.GetStatus)
	group.Get("/version", handler.GetVersion)

	return handler
}

func (h *Health) GetVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"version": h.Version})
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.Checks))
	healthy := true
	for name, check := range h.Checks {
		status := check(ctx)
		results[name] = status
		if status != "ok" && status != "disabled" {
			healthy = false
		}
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNHEALTHY",
			Message: "One or more dependencies are unavailable",
			Results: results,
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: results,
	})
}
