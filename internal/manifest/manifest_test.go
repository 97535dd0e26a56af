package manifest

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/schemaguard/internal/errs"
	"github.com/deppfellow/schemaguard/internal/schema"
	"github.com/deppfellow/schemaguard/internal/validation"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schemas/order.yaml", "type: object\nrequired: [id]\n")
	writeFile(t, dir, "schemas/search.json", `{"type":"object"}`)
	path := writeFile(t, dir, "routes.yaml", `
routes:
  - method: post
    path: /orders
    schema: schemas/order.yaml
    detailed_errors: true
  - method: GET
    path: /search
    schema: schemas/search.json
    target: query
    error_mode: inject
    inject_key: errs
    use_defaults: missing
`)

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Routes, 2)

	orders := m.Routes[0]
	assert.Equal(t, "POST /orders", orders.Name())
	assert.True(t, orders.DetailedErrors)
	assert.JSONEq(t, `{"type":"object","required":["id"]}`, string(orders.Document))

	search := m.Routes[1]
	assert.Equal(t, "query", search.Target)
	assert.Equal(t, schema.DefaultsMissing, search.UseDefaults)
	assert.JSONEq(t, `{"type":"object"}`, string(search.Document))
}

func TestLoad_MissingSchemaFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.yaml", `
routes:
  - method: POST
    path: /orders
    schema: nowhere.json
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "route POST /orders")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty",
			yaml:    "",
			wantErr: "manifest declares no routes",
		},
		{
			name:    "unknown key",
			yaml:    "routes:\n  - method: GET\n    path: /a\n    schema: a.json\n    eror_mode: throw\n",
			wantErr: "failed to parse manifest",
		},
		{
			name:    "bad method",
			yaml:    "routes:\n  - method: FETCH\n    path: /a\n    schema: a.json\n",
			wantErr: `unsupported method "FETCH"`,
		},
		{
			name:    "relative path",
			yaml:    "routes:\n  - method: GET\n    path: a\n    schema: a.json\n",
			wantErr: "path must start with",
		},
		{
			name:    "missing schema",
			yaml:    "routes:\n  - method: GET\n    path: /a\n",
			wantErr: "schema is required",
		},
		{
			name:    "unknown error mode",
			yaml:    "routes:\n  - method: GET\n    path: /a\n    schema: a.json\n    error_mode: abc\n",
			wantErr: `unknown error mode: "abc"`,
		},
		{
			name:    "reserved inject key",
			yaml:    "routes:\n  - method: GET\n    path: /a\n    schema: a.json\n    error_mode: inject\n    inject_key: logger\n",
			wantErr: `inject_key "logger" is reserved`,
		},
		{
			name:    "duplicate route",
			yaml:    "routes:\n  - method: GET\n    path: /a\n    schema: a.json\n  - method: get\n    path: /a\n    schema: b.json\n",
			wantErr: "declared more than once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRoute_ValidationConfig(t *testing.T) {
	route := Route{
		Method:       http.MethodGet,
		Path:         "/search",
		Target:       "query",
		ErrorMode:    "Inject",
		InjectKey:    "errs",
		CopyOnInject: true,
		Draft:        "7",
		UseDefaults:  schema.DefaultsEmpty,
		AssertFormat: true,
	}

	cfg, err := route.ValidationConfig()
	require.NoError(t, err)

	assert.Equal(t, validation.Inject, cfg.ErrorMode)
	assert.Equal(t, "query", cfg.Target)
	assert.Equal(t, "errs", cfg.InjectKey)
	assert.True(t, cfg.CopyOnInject)
	assert.Equal(t, schema.Options{Draft: "7", UseDefaults: schema.DefaultsEmpty, AssertFormat: true}, cfg.Engine)
	assert.Nil(t, cfg.CreateError, "plain routes keep the wrapper default")
}

func TestRoute_CreateError(t *testing.T) {
	failures := schema.Failures{{InstancePath: "/id", Keyword: "type", Message: "expected string"}}

	t.Run("detailed", func(t *testing.T) {
		cfg, err := Route{DetailedErrors: true}.ValidationConfig()
		require.NoError(t, err)

		var httpErr *errs.HTTPError
		require.True(t, errors.As(cfg.CreateError(failures), &httpErr))
		assert.Equal(t, []errs.FieldError{{Field: "id", Error: "expected string", Rule: "type"}}, httpErr.Errors)
	})

	t.Run("custom message", func(t *testing.T) {
		cfg, err := Route{ErrorMessage: "Order rejected"}.ValidationConfig()
		require.NoError(t, err)

		var httpErr *errs.HTTPError
		require.True(t, errors.As(cfg.CreateError(failures), &httpErr))
		assert.Equal(t, "Order rejected", httpErr.Message)
		assert.Empty(t, httpErr.Errors)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	})
}
