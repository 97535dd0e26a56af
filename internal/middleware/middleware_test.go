package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/schemaguard/internal/errs"
)

func TestNewRequestDocument(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/orders/42?tag=a&tag=b&page=2", strings.NewReader(`{"n": 12345678901234567890}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Tenant", "acme")
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")

	doc, err := NewRequestDocument(c, 1024)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, doc["method"])
	assert.Equal(t, "/orders/42", doc["path"])
	assert.Equal(t, map[string]any{"id": "42"}, doc["params"])
	assert.Equal(t, map[string]any{"tag": []any{"a", "b"}, "page": "2"}, doc["query"])

	headers := doc["headers"].(map[string]any)
	assert.Equal(t, "acme", headers["x-tenant"])
	assert.Equal(t, echo.MIMEApplicationJSON, headers["content-type"])

	body := doc["body"].(map[string]any)
	assert.Equal(t, "12345678901234567890", body["n"].(interface{ String() string }).String())

	// The body can still be read by the handler.
	rest := make([]byte, 64)
	n, _ := c.Request().Body.Read(rest)
	assert.Equal(t, `{"n": 12345678901234567890}`, string(rest[:n]))
}

func TestNewRequestDocument_FormBody(t *testing.T) {
	e := echo.New()

	form := url.Values{"name": {"widget"}, "size": {"s", "m"}}
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	doc, err := NewRequestDocument(e.NewContext(req, httptest.NewRecorder()), 1024)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "widget", "size": []any{"s", "m"}}, doc["body"])
}

func TestNewRequestDocument_EmptyBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/items", nil)

	doc, err := NewRequestDocument(e.NewContext(req, httptest.NewRecorder()), 1024)
	require.NoError(t, err)
	assert.NotContains(t, doc, "body")
}

func TestGlobalErrorHandler(t *testing.T) {
	global := NewGlobalMiddlewares(newTestServer(t))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "http error",
			err:        errs.NewBadRequestError("Bad request", nil, []errs.FieldError{{Field: "id", Error: "required"}}),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":"BAD_REQUEST","message":"Bad request","status":400,"errors":[{"field":"id","error":"required"}]}`,
		},
		{
			name:       "echo not found",
			err:        echo.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"code":"NOT_FOUND","message":"Route not found","status":404}`,
		},
		{
			name:       "echo method not allowed",
			err:        echo.ErrMethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   `{"code":"METHOD_NOT_ALLOWED","message":"Method Not Allowed","status":405}`,
		},
		{
			name:       "unknown error",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"INTERNAL_SERVER_ERROR","message":"Internal Server Error","status":500}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			global.GlobalErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("reuses incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Body.String())
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("generates one", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, rec.Body.String(), 36)
		assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
	})
}

func TestContextEnhancer(t *testing.T) {
	s := newTestServer(t)
	e := echo.New()
	e.Use(RequestID(), NewContextEnhancer(s).EnhanceContext())
	e.GET("/", func(c echo.Context) error {
		assert.Same(t, GetLogger(c), LoggerFromContext(c.Request().Context()))
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.Config.Server.RateLimit = 1

	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(s).GlobalErrorHandler
	e.Use(NewRateLimitMiddleware(s).Limit())
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusNoContent, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestRateLimit_Disabled(t *testing.T) {
	s := newTestServer(t)
	s.Config.Server.RateLimit = 0

	e := echo.New()
	e.Use(NewRateLimitMiddleware(s).Limit())
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for range 50 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}
