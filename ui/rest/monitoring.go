package rest

import (
	"github.com/AzielCF/az-connect/pkg/eventmonitor"
	"github.com/AzielCF/az-connect/pkg/eventworker"
	"github.com/gofiber/fiber/v2"
)

type MonitoringHandler struct {
	monitor *eventmonitor.Monitor
	pool    *eventworker.Pool
}

type monitoringStats struct {
	Transitions eventmonitor.Stats    `json:"transitions"`
	Workers     eventworker.PoolStats `json:"workers"`
}

func InitRestMonitoring(app fiber.Router, monitor *eventmonitor.Monitor, pool *eventworker.Pool) {
	h := &MonitoringHandler{monitor: monitor, pool: pool}
	g := app.Group("/monitoring")
	g.Get("/events", h.GetRecentEvents)
	g.Get("/stats", h.GetStats)
}

// GetRecentEvents returns buffered transitions, optionally for one chatbot.
func (h *MonitoringHandler) GetRecentEvents(c *fiber.Ctx) error {
	events := h.monitor.Recent(c.Query("chatbot"), c.QueryInt("limit", 100))
	return success(c, fiber.StatusOK, "Events fetched", events)
}

func (h *MonitoringHandler) GetStats(c *fiber.Ctx) error {
	stats := monitoringStats{Transitions: h.monitor.Stats()}
	stats.Transitions.RecentEvents = nil
	if h.pool != nil {
		stats.Workers = h.pool.Stats()
	}
	return success(c, fiber.StatusOK, "Stats fetched", stats)
}
