package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/swimmeet-console/internal/handler"
)

// RegisterRoutes registers the probes that sit outside /v1.  Liveness never
// touches the backend; readiness does.
func RegisterRoutes(e *echo.Echo, h *handler.MeetHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", h.Ready)
}
