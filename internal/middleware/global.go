package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/schemaguard/internal/errs"
	"github.com/deppfellow/schemaguard/internal/server"
)

// GlobalMiddlewares groups global middleware and the global error handler.
// It keeps the *server.Server so every piece can read config and the logger.
type GlobalMiddlewares struct {
	server *server.Server
}

// NewGlobalMiddlewares constructs the middleware bundle.
func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS returns Echo's CORS middleware configured from server config.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
	})
}

// RequestLogger returns Echo's request logger middleware writing one "API"
// line per request through the request-scoped zerolog logger.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// When a handler (or a throw-mode route) returns an error, the
			// final status is only decided by GlobalErrorHandler, so derive it
			// from the error instead of logging a 200.
			// Reference: https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			if v.Error != nil {
				statusCode = statusFromError(v.Error, statusCode)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			if requestID := GetRequestID(c); requestID != "" {
				e = e.Str("request_id", requestID)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

func statusFromError(err error, fallback int) int {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &echoErr):
		return echoErr.Code
	default:
		return fallback
	}
}

// Recover returns Echo's panic recovery middleware.
//
// It turns a panic into an error and hands it to GlobalErrorHandler, so a
// panicking handler still gets a JSON 500 and a logged stack trace. The router
// installs it last, right around the handlers, so the request logger above it
// sees the failed request.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

// Secure returns Echo's secure headers middleware.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the final error funnel of the HTTP server, and the
// "send this error" primitive used by reply-mode routes.
//
// Why one function for both?
// A reply-mode route and a throw-mode route guarding the same schema should
// produce byte-identical responses. Routing both through this handler means
// the only difference between the modes is who calls it: the schema
// middleware (reply) or Echo (throw).
//
// IMPORTANT: this handler must not leak internal errors. Anything that is not
// an HTTP error the application built on purpose becomes a generic 500, and
// the real error only reaches the logs.
//
// Mapping:
//   - *errs.HTTPError: rendered as-is
//   - *echo.HTTPError: status kept, message normalized (404 -> "Route not found")
//   - anything else: generic 500, real error only in the logs
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &echoErr) && echoErr.Code == http.StatusNotFound:
			err = errs.NewNotFoundError("Route not found")
		case errors.As(err, &echoErr):
			message, ok := echoErr.Message.(string)
			if !ok {
				message = http.StatusText(echoErr.Code)
			}
			err = errs.New(echoErr.Code, message)
		default:
			err = errs.NewInternalServerError()
		}
		errors.As(err, &httpErr)
	}

	logger := *GetLogger(c)

	// Client errors are expected traffic; only 5xx carry a stack.
	event := logger.Warn()
	if httpErr.Status >= 500 {
		event = logger.Error().Stack()
	}
	event.
		Err(originalErr).
		Int("status", httpErr.Status).
		Str("error_code", httpErr.Code).
		Msg(httpErr.Message)

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(httpErr.Status)
			return
		}
		_ = c.JSON(httpErr.Status, httpErr)
	}
}
