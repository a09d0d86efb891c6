// Package v1 provides the HTTP API of the pipeline.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"helmsman/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Orchestrator
	registry *prometheus.Registry
}

// NewHandler creates a new handler. registry may be nil to disable the
// metrics endpoint.
func NewHandler(orchestrator *service.Orchestrator, registry *prometheus.Registry) *Handler {
	return &Handler{
		service:  orchestrator,
		registry: registry,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/chat", h.Chat)
	e.GET("/v1/sessions/:session_id/history", h.GetHistory)
	e.DELETE("/v1/sessions/:session_id", h.ClearSession)

	e.GET("/health", h.Health)
	if h.registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))
	}
}

// Health returns reachability of the upstream collaborators.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	status := h.service.Health(c.Request().Context())
	return c.JSON(http.StatusOK, status)
}
