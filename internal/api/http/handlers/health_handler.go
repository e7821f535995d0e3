package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/ticket-desk/internal/observability"
	"github.com/deskops/ticket-desk/internal/persistence"
)

// Check probes one dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// WorkspaceCounter reports live workspaces.
type WorkspaceCounter interface {
	Len() int
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	checks      []Check
	redis       *persistence.Redis
	metrics     *observability.Metrics
	workspaces  WorkspaceCounter
}

// NewHealthHandler returns a new handler instance. Redis is optional; a
// disabled client is reported but does not fail readiness.
func NewHealthHandler(serviceName, version string, redis *persistence.Redis, metrics *observability.Metrics, workspaces WorkspaceCounter, checks ...Check) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		checks:      checks,
		redis:       redis,
		metrics:     metrics,
		workspaces:  workspaces,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			depStatus[check.Name] = err.Error()
			ready = false
		} else {
			depStatus[check.Name] = "ok"
		}
	}

	switch err := h.redis.Ping(ctx); {
	case errors.Is(err, persistence.ErrRedisDisabled):
		depStatus["redis"] = "disabled"
	case err != nil:
		depStatus["redis"] = err.Error()
		ready = false
	default:
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}

// Metrics reports request and workspace counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	live := 0
	if h.workspaces != nil {
		live = h.workspaces.Len()
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"metrics":    h.metrics.Snapshot(),
			"workspaces": live,
		},
	})
}
