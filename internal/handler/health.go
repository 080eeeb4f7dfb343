package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// Health is the liveness endpoint used by load balancers.  It never
// touches the backend.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports whether the meet backend answers within two seconds.
func (h *MeetHandler) Ready(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    if err := h.Service.Ping(ctx); err != nil {
        h.Log.Warn("backend not ready", zap.Error(err))
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "backend unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}
