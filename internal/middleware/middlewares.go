package middleware

import (
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/schemaguard/internal/server"
)

// Middlewares groups all middleware components used by the HTTP server,
// built once from the application container and reused during routing.
type Middlewares struct {
	// Global holds CORS, request logging, recovery, secure headers and the
	// global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer attaches a request-scoped logger to every request.
	ContextEnhancer *ContextEnhancer

	// Tracing provides the New Relic middleware and custom attributes.
	Tracing *TracingMiddleware

	// RateLimit throttles clients per IP.
	RateLimit *RateLimitMiddleware

	// Schema builds per-route validating middleware.
	Schema *SchemaMiddleware
}

// NewMiddlewares constructs all middleware components.
//
// When New Relic is not configured nrApp stays nil and tracing degrades
// into no-ops.
func NewMiddlewares(s *server.Server) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	global := NewGlobalMiddlewares(s)

	return &Middlewares{
		Global:          global,
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
		Schema:          NewSchemaMiddleware(s, global.GlobalErrorHandler),
	}
}
