package router_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/avalos-dev/assignment-reviewer/internal/config"
	"github.com/avalos-dev/assignment-reviewer/internal/handler"
	"github.com/avalos-dev/assignment-reviewer/internal/middleware"
	"github.com/avalos-dev/assignment-reviewer/internal/router"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := zerolog.New(io.Discard)
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Reviewer Test", AppEnv: "test"}, router.Dependencies{})
	return app
}

func TestHealthEndpoint(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Reviewer Test", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	var payload struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, &payload))

	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, "Reviewer Test", payload.Data.Service)
	require.Equal(t, "test", payload.Data.Environment)
	require.GreaterOrEqual(t, payload.Data.UptimeSeconds, int64(0))
}

func TestCorrelationIDIsEchoed(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
