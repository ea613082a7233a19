package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/avalos-dev/assignment-reviewer/internal/config"
	"github.com/avalos-dev/assignment-reviewer/internal/utils"
)

var startedAt = time.Now().UTC()

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Service       string    `json:"service"`
	Environment   string    `json:"environment"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// HealthCheck reports liveness; it does not probe the mailbox or the grading
// backend, those surface through metrics instead.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now().UTC()
		payload := HealthResponse{
			Status:        "ok",
			Timestamp:     now,
			Service:       cfg.AppName,
			Environment:   cfg.AppEnv,
			UptimeSeconds: int64(now.Sub(startedAt).Seconds()),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
