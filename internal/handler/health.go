package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"amethyst-gateway/internal/config"
	"amethyst-gateway/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg        *config.Config
	backendURL *config.BackendURL
	status     *service.StatusService
	version    Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, backendURL *config.BackendURL, status *service.StatusService, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, backendURL: backendURL, status: status, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns gateway status information.
func (h *HealthHandler) Status(c echo.Context) error {
	environment := h.cfg.App.Environment
	if environment == "" {
		environment = "development"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "ok",
		"version":     string(h.version),
		"environment": environment,
		"backend_url": h.backendURL.Get(),
	})
}

// SystemStatus reports the gateway's and the backend's health. It always
// answers 200; failed probes are marked inside the body.
func (h *HealthHandler) SystemStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status.Check(c.Request().Context()))
}
