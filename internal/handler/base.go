package handler

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/schemaguard/internal/middleware"
	"github.com/deppfellow/schemaguard/internal/server"
	"github.com/deppfellow/schemaguard/internal/validation"
)

// Handler holds the shared application dependencies; concrete handlers
// embed it.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// DocumentFunc is an endpoint behind a schema guard. It receives the
// request document the guard validated (defaults applied, failures
// injected when the route uses inject mode).
type DocumentFunc func(c echo.Context, doc validation.Request) (any, error)

// ResponseHandler decides how a successful result is written and which
// observability attributes it adds.
type ResponseHandler interface {
	Handle(c echo.Context, result any) error
	GetOperation() string
	AddAttributes(txn *newrelic.Transaction, result any)
}

// JSONResponseHandler writes result as JSON with a fixed status.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result any) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result any) {
	// http.status_code is set by EnhanceTracing.
}

// NoContentResponseHandler writes only a status, for HEAD and OPTIONS routes.
type NoContentResponseHandler struct {
	status int
}

func (h NoContentResponseHandler) Handle(c echo.Context, result any) error {
	return c.NoContent(h.status)
}

func (h NoContentResponseHandler) GetOperation() string {
	return "handler_no_content"
}

func (h NoContentResponseHandler) AddAttributes(txn *newrelic.Transaction, result any) {}

// handleRequest is the shared execution pipeline: logging, timing, New Relic
// attributes and response writing around one DocumentFunc.
//
// Validation itself already happened in the route's schema guard; a missing
// document only means the route was registered without one.
func handleRequest(c echo.Context, handler DocumentFunc, responseHandler ResponseHandler) error {
	start := time.Now()
	method := c.Request().Method
	route := c.Path()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
		responseHandler.AddAttributes(txn, nil)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("method", method).
		Str("route", route).
		Logger()

	logger.Info().Msg("handling request")

	doc := middleware.GetRequestDocument(c)
	if doc == nil {
		logger.Debug().Msg("route has no schema guard, handling without a request document")
		doc = validation.Request{}
	}

	handlerStart := time.Now()
	result, err := handler(c, doc)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		totalDuration := time.Since(start)

		logger.Error().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", totalDuration).
			Msg("handler execution failed")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
			txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		}
		return err
	}

	totalDuration := time.Since(start)

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
		responseHandler.AddAttributes(txn, result)
	}

	logger.Info().
		Dur("handler_duration", handlerDuration).
		Dur("total_duration", totalDuration).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// Handle wraps fn in the pipeline and answers with status and a JSON body.
//
//	e.POST("/orders", handler.Handle(h, fn, http.StatusOK), guard)
func Handle(h Handler, fn DocumentFunc, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, fn, JSONResponseHandler{status: status})
	}
}

// HandleNoContent is Handle for endpoints without a response body.
func HandleNoContent(h Handler, fn func(c echo.Context, doc validation.Request) error, status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, func(c echo.Context, doc validation.Request) (any, error) {
			return nil, fn(c, doc)
		}, NoContentResponseHandler{status: status})
	}
}
