package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Database  Pinger
	Timeout   time.Duration
	startedAt time.Time
}

func NewHealthHandler(database Pinger, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		Database:  database,
		Timeout:   timeout,
		startedAt: time.Now(),
	}
}

// Health returns 200 when the record store answers, 503 otherwise
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.Timeout)
	defer cancel()

	checks := fiber.Map{"database": "ok"}
	status := "ok"
	code := fiber.StatusOK

	if err := h.Database.Ping(ctx); err != nil {
		logrus.WithField("component", "HealthHandler").WithError(err).Warn("Database health check failed")
		checks["database"] = err.Error()
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	})
}
