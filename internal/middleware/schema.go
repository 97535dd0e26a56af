package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/schemaguard/internal/schema"
	"github.com/deppfellow/schemaguard/internal/server"
	"github.com/deppfellow/schemaguard/internal/validation"
)

const (
	// RequestDocumentKey is the Echo context key of the validated request
	// document (see NewRequestDocument).
	RequestDocumentKey = "request_document"

	rejectionKey = "schema_rejection"
)

// reservedContextKeys are the Echo context keys the middleware stack owns.
// Inject mode also stores its failures in the Echo context, so an inject key
// equal to one of these would silently replace the request logger or the
// request document.
var reservedContextKeys = map[string]bool{
	LoggerKey:          true,
	RequestIDKey:       true,
	RequestDocumentKey: true,
	rejectionKey:       true,
}

// Validation outcomes recorded in logs and on the New Relic transaction.
const (
	statusSuccess  = "success"
	statusFailed   = "failed"
	statusInjected = "injected"
)

// SchemaMiddleware turns schemas into per-route Echo middleware backed by a
// validation.Wrapper.
//
// IMPORTANT: the middleware it returns is route-level, so it runs after every
// global middleware. It relies on RequestID and EnhanceContext having run:
// its logs and the logger handed to the wrapped handler are the request-scoped
// ones, and without them both fall back to a no-op logger.
type SchemaMiddleware struct {
	server *server.Server

	// send renders an error to the client; Reply mode uses it as the
	// reply collaborator.
	send func(err error, c echo.Context)
}

// NewSchemaMiddleware constructs SchemaMiddleware. send is normally
// GlobalMiddlewares.GlobalErrorHandler.
func NewSchemaMiddleware(s *server.Server, send func(err error, c echo.Context)) *SchemaMiddleware {
	return &SchemaMiddleware{
		server: s,
		send:   send,
	}
}

// rejection carries the failures next to the error built by CreateError, so
// Reply and Throw outcomes can be logged with their failure list.
type rejection struct {
	err      error
	failures schema.Failures
}

func (r *rejection) Error() string { return r.err.Error() }
func (r *rejection) Unwrap() error { return r.err }

// Validate compiles doc with cfg and returns the middleware guarding one
// route. Configuration and compilation errors surface here, at startup,
// which is why the router calls it while building routes and not lazily on
// the first request.
//
// Per request:
//  1. build the request document (NewRequestDocument); a body that cannot
//     be read or decoded ends the request before any validation
//  2. run the wrapper with a handler that calls the rest of the Echo chain
//  3. log the decision and tag the New Relic transaction
//
// How each error mode maps onto Echo:
//   - Reply: the error goes through send (the global error handler) and the
//     chain stops with nil. Echo sees a handled request.
//   - Throw: the error is returned to Echo, which hands it to the global
//     error handler itself. Outer middleware (tracing, request logger) see
//     the error too.
//   - Inject: the failures are stored in the document under InjectKey and
//     in the Echo context under the same key, then the chain continues
//
// Why wrap CreateError?
// The wrapper hands Reply and Throw only the error CreateError built, not
// the failure list. Wrapping the constructor in a *rejection keeps the list
// next to the error so it can be logged, then the rejection is peeled off
// before anything reaches the client.
//
// The handler reads the document (with defaults applied) through
// GetRequestDocument.
func (sm *SchemaMiddleware) Validate(doc any, cfg validation.Config) (echo.MiddlewareFunc, error) {
	createError := cfg.CreateError
	if createError == nil {
		createError = validation.DefaultCreateError
	}
	cfg.CreateError = func(failures schema.Failures) error {
		return &rejection{err: createError(failures), failures: failures}
	}

	w, err := validation.New[echo.Context](doc, sm.reply, cfg)
	if err != nil {
		return nil, err
	}
	effective := w.Config()

	if effective.ErrorMode == validation.Inject && reservedContextKeys[effective.InjectKey] {
		return nil, &validation.ConfigurationError{Field: "injectKey", Value: effective.InjectKey}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			doc, err := NewRequestDocument(c, sm.maxBodyBytes())
			if err != nil {
				return err
			}

			var (
				reached  bool
				injected schema.Failures
			)
			// The wrapper is cheap to apply; doing it per request lets the
			// closure record what happened in locals instead of the context.
			handler := w.Wrap(func(ctx context.Context, req validation.Request, c echo.Context) error {
				reached = true

				if effective.ErrorMode == validation.Inject {
					if failures, ok := req[effective.InjectKey].(schema.Failures); ok {
						injected = failures
						c.Set(effective.InjectKey, failures)

						LoggerFromContext(ctx).Debug().
							Str("inject_key", effective.InjectKey).
							Int("failures", len(failures)).
							Msg("passing validation failures to the handler")
					}
				}
				c.Set(RequestDocumentKey, req)

				return next(c)
			})

			err = handler(c.Request().Context(), doc, c)

			switch {
			case reached && injected != nil:
				sm.observe(c, effective, statusInjected, injected, time.Since(start))
			case reached:
				sm.observe(c, effective, statusSuccess, nil, time.Since(start))
			default:
				var rej *rejection
				if errors.As(err, &rej) {
					// Throw: hand Echo the error CreateError built.
					err = rej.err
				} else if stored, ok := c.Get(rejectionKey).(*rejection); ok {
					rej = stored
				}

				var failures schema.Failures
				if rej != nil {
					failures = rej.failures
				}
				sm.observe(c, effective, statusFailed, failures, time.Since(start))
			}

			return err
		}
	}, nil
}

// reply is the Reply-mode collaborator: it renders the error and reports
// success to the wrapper, so Echo sees a handled request.
func (sm *SchemaMiddleware) reply(_ context.Context, _ validation.Request, c echo.Context, err error) error {
	var rej *rejection
	if errors.As(err, &rej) {
		c.Set(rejectionKey, rej)
		err = rej.err
	}

	if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
		txn.NoticeError(nrpkgerrors.Wrap(err))
	}

	sm.send(err, c)
	return nil
}

func (sm *SchemaMiddleware) observe(c echo.Context, cfg validation.Config, status string, failures schema.Failures, duration time.Duration) {
	if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
		txn.AddAttribute("validation.status", status)
		txn.AddAttribute("validation.mode", string(cfg.ErrorMode))
		txn.AddAttribute("validation.failures", len(failures))
		txn.AddAttribute("validation.duration_ms", duration.Milliseconds())
	}

	logger := GetLogger(c).With().
		Str("operation", "schema_validation").
		Str("target", cfg.Target).
		Str("error_mode", string(cfg.ErrorMode)).
		Logger()

	var event *zerolog.Event
	switch status {
	case statusSuccess:
		event = logger.Debug()
	default:
		event = logger.Warn()
	}

	event = event.
		Str("validation_status", status).
		Int("failures", len(failures)).
		Dur("validation_duration", duration)

	if len(failures) > 0 {
		event = event.Str("first_failure", failures[0].Field()+": "+failures[0].Message)
	}

	event.Msg("request validation " + status)
}

func (sm *SchemaMiddleware) maxBodyBytes() int64 {
	if sm.server != nil && sm.server.Config != nil && sm.server.Config.Gateway.MaxBodyBytes > 0 {
		return sm.server.Config.Gateway.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

const defaultMaxBodyBytes = 10 << 20
