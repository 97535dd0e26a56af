package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/schemaguard/internal/server"
)

// TracingMiddleware owns the New Relic middleware. With a nil nrApp every
// method degrades into a pass-through.
type TracingMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

// NewTracingMiddleware constructs TracingMiddleware.
func NewTracingMiddleware(s *server.Server, nrApp *newrelic.Application) *TracingMiddleware {
	return &TracingMiddleware{
		server: s,
		nrApp:  nrApp,
	}
}

// NewRelicMiddleware starts one transaction per request and stores it in
// the request context, which is what newrelic.FromContext reads later.
//
// Why a pass-through instead of skipping the middleware?
// The router builds the same chain whether New Relic is configured or not.
// Every later piece (EnhanceTracing, the schema middleware, the handlers)
// already treats a missing transaction as "tracing off", so a local run
// without a license key needs no special wiring.
func (tm *TracingMiddleware) NewRelicMiddleware() echo.MiddlewareFunc {
	if tm.nrApp == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return nrecho.Middleware(tm.nrApp)
}

// EnhanceTracing adds request attributes to the transaction, notices
// returned errors and records the final status code.
//
// IMPORTANT: it must run after NewRelicMiddleware (which creates the
// transaction) and after RequestID (whose id it copies). Reply-mode
// rejections never reach it as errors because the schema middleware answers
// them itself and notices the error on the transaction directly.
func (tm *TracingMiddleware) EnhanceTracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := newrelic.FromContext(c.Request().Context())
			if txn == nil {
				return next(c)
			}

			txn.AddAttribute("http.real_ip", c.RealIP())
			txn.AddAttribute("http.user_agent", c.Request().UserAgent())
			if requestID := GetRequestID(c); requestID != "" {
				txn.AddAttribute("request.id", requestID)
			}
			if route := c.Path(); route != "" {
				txn.AddAttribute("http.route", route)
			}

			err := next(c)
			if err != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
			}

			txn.AddAttribute("http.status_code", c.Response().Status)

			return err
		}
	}
}
