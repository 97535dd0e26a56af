// Package router builds the Echo instance: the global middleware stack, the
// system routes and one guarded route per manifest entry.
package router

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/schemaguard/internal/handler"
	"github.com/deppfellow/schemaguard/internal/manifest"
	"github.com/deppfellow/schemaguard/internal/middleware"
	"github.com/deppfellow/schemaguard/internal/server"
)

// NewRouter wires middleware and routes. Every manifest schema is compiled
// here, so a bad schema or route option fails startup instead of a request.
func NewRouter(s *server.Server, h *handler.Handlers) (*echo.Echo, error) {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.RateLimit.Limit(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)

	if s.Manifest != nil {
		if err := registerManifestRoutes(router, s.Manifest, h, middlewares); err != nil {
			return nil, err
		}
	}

	return router, nil
}

func registerManifestRoutes(r *echo.Echo, m *manifest.Manifest, h *handler.Handlers, mw *middleware.Middlewares) error {
	for _, route := range m.Routes {
		if route.Path == statusPath {
			return fmt.Errorf("route %s: path is reserved", route.Name())
		}

		cfg, err := route.ValidationConfig()
		if err != nil {
			return fmt.Errorf("route %s: %w", route.Name(), err)
		}

		guard, err := mw.Schema.Validate(route.Document, cfg)
		if err != nil {
			return fmt.Errorf("route %s: %w", route.Name(), err)
		}

		r.Add(route.Method, route.Path, h.Gateway.Route(route), guard)
	}
	return nil
}
