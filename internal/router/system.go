package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/schemaguard/internal/handler"
)

const statusPath = "/status"

// registerSystemRoutes registers endpoints that are not manifest routes.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET(statusPath, h.Health.CheckHealth)
}
