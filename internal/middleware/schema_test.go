package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/schemaguard/internal/config"
	"github.com/deppfellow/schemaguard/internal/manifest"
	"github.com/deppfellow/schemaguard/internal/schema"
	"github.com/deppfellow/schemaguard/internal/server"
	"github.com/deppfellow/schemaguard/internal/validation"
)

var orderSchema = map[string]any{
	"type":     "object",
	"required": []any{"id"},
	"properties": map[string]any{
		"id":       map[string]any{"type": "string"},
		"quantity": map[string]any{"type": "integer", "minimum": 1, "default": 1},
	},
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Gateway.MaxBodyBytes = 256

	log := zerolog.Nop()
	return server.New(cfg, &log, nil, nil)
}

// newTestEcho registers one guarded route whose handler echoes the document.
func newTestEcho(t *testing.T, method, path string, doc any, cfg validation.Config) (*echo.Echo, *int) {
	t.Helper()

	mw := NewMiddlewares(newTestServer(t))

	guard, err := mw.Schema.Validate(doc, cfg)
	require.NoError(t, err)

	calls := 0
	e := echo.New()
	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler
	e.Add(method, path, func(c echo.Context) error {
		calls++

		out := map[string]any{"request": GetRequestDocument(c)}
		if failures, ok := c.Get("errs").(schema.Failures); ok {
			out["errs"] = failures
		}
		return c.JSON(http.StatusOK, out)
	}, guard)

	return e, &calls
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestValidate_ReplyMode(t *testing.T) {
	e, calls := newTestEcho(t, http.MethodPost, "/orders", orderSchema, validation.Config{
		Engine: schema.Options{UseDefaults: schema.DefaultsMissing},
	})

	t.Run("invalid body gets a generic 400", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"quantity":0}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"code":"BAD_REQUEST","message":"Bad request","status":400}`, rec.Body.String())
		assert.Equal(t, 0, *calls)
	})

	t.Run("valid body reaches the handler with defaults", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"id":"A-1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, *calls)

		request := decode(t, rec)["request"].(map[string]any)
		assert.Equal(t, map[string]any{"id": "A-1", "quantity": float64(1)}, request["body"])
		assert.Equal(t, "POST", request["method"])
		assert.Equal(t, "/orders", request["path"])
	})

	t.Run("absent body is validated as null", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidate_ThrowMode(t *testing.T) {
	e, calls := newTestEcho(t, http.MethodPost, "/orders", orderSchema, validation.Config{
		ErrorMode:   validation.Throw,
		CreateError: validation.DetailedCreateError,
	})

	rec := serve(e, http.MethodPost, "/orders", `{"id":7}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, *calls)

	out := decode(t, rec)
	assert.Equal(t, "Validation failed", out["message"])
	fieldErrors := out["errors"].([]any)
	require.Len(t, fieldErrors, 1)
	assert.Equal(t, "id", fieldErrors[0].(map[string]any)["field"])
	assert.Equal(t, "type", fieldErrors[0].(map[string]any)["rule"])
}

func TestValidate_InjectMode(t *testing.T) {
	e, calls := newTestEcho(t, http.MethodPost, "/orders", orderSchema, validation.Config{
		ErrorMode: validation.Inject,
		InjectKey: "errs",
	})

	t.Run("failures are injected", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"quantity":0}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, *calls)

		out := decode(t, rec)
		failures := out["errs"].([]any)
		require.Len(t, failures, 2)
		assert.Equal(t, "required", failures[0].(map[string]any)["keyword"])
		assert.Equal(t, "/quantity", failures[1].(map[string]any)["instancePath"])

		request := out["request"].(map[string]any)
		assert.Contains(t, request, "errs")
	})

	t.Run("valid request has no failures", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"id":"A-1","quantity":3}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, decode(t, rec), "errs")
	})
}

func TestValidate_QueryTargetWithDefaults(t *testing.T) {
	searchSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"q":     map[string]any{"type": "string", "minLength": 1},
			"limit": map[string]any{"type": "string", "default": "10"},
		},
	}

	e, _ := newTestEcho(t, http.MethodGet, "/search", searchSchema, validation.Config{
		Target: "query",
		Engine: schema.Options{UseDefaults: schema.DefaultsMissing},
	})

	rec := serve(e, http.MethodGet, "/search?q=shoes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	request := decode(t, rec)["request"].(map[string]any)
	assert.Equal(t, map[string]any{"q": "shoes", "limit": "10"}, request["query"])

	rec = serve(e, http.MethodGet, "/search?q=", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidate_ParamsTarget(t *testing.T) {
	idSchema := map[string]any{"type": "string", "pattern": "^[0-9]+$"}

	e, _ := newTestEcho(t, http.MethodGet, "/orders/:id", idSchema, validation.Config{Target: "params.id"})

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/orders/42", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/orders/abc", "").Code)
}

func TestValidate_BodyErrors(t *testing.T) {
	e, calls := newTestEcho(t, http.MethodPost, "/orders", orderSchema, validation.Config{})

	t.Run("malformed json", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Malformed JSON body", decode(t, rec)["message"])
	})

	t.Run("trailing data", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"id":"a"} {"id":"b"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		rec := serve(e, http.MethodPost, "/orders", `{"id":"`+strings.Repeat("x", 300)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	assert.Equal(t, 0, *calls)
}

func TestValidate_ConstructionErrors(t *testing.T) {
	mw := NewMiddlewares(newTestServer(t))

	_, err := mw.Schema.Validate(orderSchema, validation.Config{ErrorMode: "abc"})
	var cfgErr *validation.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), `"abc"`)

	_, err = mw.Schema.Validate(map[string]any{"type": 12}, validation.Config{})
	var compileErr *validation.SchemaCompilationError
	assert.True(t, errors.As(err, &compileErr))
}

func TestValidate_ReservedInjectKey(t *testing.T) {
	mw := NewMiddlewares(newTestServer(t))

	for key := range reservedContextKeys {
		t.Run(key, func(t *testing.T) {
			_, err := mw.Schema.Validate(orderSchema, validation.Config{
				ErrorMode: validation.Inject,
				InjectKey: key,
			})

			var cfgErr *validation.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "injectKey", cfgErr.Field)

			// The manifest refuses the same keys before the router gets here.
			_, err = manifest.Parse([]byte("routes:\n  - method: POST\n    path: /a\n    schema: a.json\n    error_mode: inject\n    inject_key: " + key + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "is reserved")
		})
	}

	t.Run("other modes ignore the inject key", func(t *testing.T) {
		_, err := mw.Schema.Validate(orderSchema, validation.Config{InjectKey: LoggerKey})
		assert.NoError(t, err)
	})
}

func TestValidate_InjectModeKeepsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	s := newTestServer(t)
	s.Logger = &log
	mw := NewMiddlewares(s)

	guard, err := mw.Schema.Validate(orderSchema, validation.Config{
		ErrorMode: validation.Inject,
		InjectKey: "errs",
	})
	require.NoError(t, err)

	e := echo.New()
	e.Use(RequestID(), mw.ContextEnhancer.EnhanceContext())
	e.POST("/orders", func(c echo.Context) error {
		assert.Same(t, GetLogger(c), LoggerFromContext(c.Request().Context()))
		assert.NotEmpty(t, GetRequestID(c))
		return c.NoContent(http.StatusNoContent)
	}, guard)

	rec := serve(e, http.MethodPost, "/orders", `{"quantity":0}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, buf.String(), "passing validation failures to the handler")
	assert.Contains(t, buf.String(), `"inject_key":"errs"`)
}
