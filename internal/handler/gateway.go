package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/schemaguard/internal/manifest"
	"github.com/deppfellow/schemaguard/internal/schema"
	"github.com/deppfellow/schemaguard/internal/server"
	"github.com/deppfellow/schemaguard/internal/validation"
)

// GatewayHandler answers manifest routes once their guard let the request
// through.
type GatewayHandler struct {
	Handler
}

// NewGatewayHandler constructs a GatewayHandler.
func NewGatewayHandler(s *server.Server) *GatewayHandler {
	return &GatewayHandler{
		Handler: NewHandler(s),
	}
}

// Route returns the handler for one manifest route. The response is
//
//	{"request": <validated document>, "<inject key>": [<failures>]}
//
// where the failures are only present for inject-mode routes that received
// an invalid request. HEAD and OPTIONS routes answer 204.
func (h *GatewayHandler) Route(route manifest.Route) echo.HandlerFunc {
	injectKey := route.InjectKey
	if injectKey == "" {
		injectKey = validation.DefaultInjectKey
	}

	switch route.Method {
	case http.MethodHead, http.MethodOptions:
		return HandleNoContent(h.Handler, func(echo.Context, validation.Request) error {
			return nil
		}, http.StatusNoContent)
	}

	return Handle(h.Handler, func(c echo.Context, doc validation.Request) (any, error) {
		out := map[string]any{"request": withoutKey(doc, injectKey)}
		if failures, ok := doc[injectKey].(schema.Failures); ok {
			out[injectKey] = failures
		}
		return out, nil
	}, http.StatusOK)
}

// withoutKey drops the injected failures from the echoed document so they
// appear once, at the top level.
func withoutKey(doc validation.Request, key string) validation.Request {
	if _, ok := doc[key]; !ok {
		return doc
	}
	out := doc.Clone()
	delete(out, key)
	return out
}
