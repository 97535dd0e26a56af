// Package manifest loads the route manifest: the YAML file that says which
// routes the gateway serves and how each one is validated.
//
//	routes:
//	  - method: POST
//	    path: /orders
//	    schema: schemas/order.yaml
//	    target: body
//	    error_mode: reply
//	    use_defaults: missing
//	    detailed_errors: true
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deppfellow/schemaguard/internal/errs"
	"github.com/deppfellow/schemaguard/internal/schema"
	"github.com/deppfellow/schemaguard/internal/validation"
)

// Manifest is the decoded route manifest.
type Manifest struct {
	Routes []Route `yaml:"routes"`
}

// Route describes one validated endpoint.
type Route struct {
	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Schema is the schema file, relative to the manifest.
	Schema string `yaml:"schema"`

	Target    string `yaml:"target"`
	ErrorMode string `yaml:"error_mode"`
	InjectKey string `yaml:"inject_key"`

	// CopyOnInject leaves the shared request document untouched in inject mode.
	CopyOnInject bool `yaml:"copy_on_inject"`

	// DetailedErrors exposes schema failures in 400 responses.
	DetailedErrors bool `yaml:"detailed_errors"`

	// ErrorMessage replaces the default "Bad request" message.
	ErrorMessage string `yaml:"error_message"`

	Draft         string              `yaml:"draft"`
	UseDefaults   schema.DefaultsMode `yaml:"use_defaults"`
	AssertFormat  bool                `yaml:"assert_format"`
	AssertContent bool                `yaml:"assert_content"`

	// Document is the loaded schema, filled by Load.
	Document json.RawMessage `yaml:"-"`
}

// Name is "METHOD path", used in logs and error messages.
func (r Route) Name() string {
	return r.Method + " " + r.Path
}

// Load reads and checks a manifest, then loads every referenced schema.
//
// Checks:
//   - unknown YAML keys are rejected (typos should not silently disable options)
//   - at least one route
//   - method, path and schema are required; the method must be a known HTTP verb
//   - a method+path pair may appear only once
//   - error_mode must parse
//   - inject_key may not name an Echo context key the middleware stack owns
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range m.Routes {
		route := &m.Routes[i]

		schemaPath := route.Schema
		if !filepath.IsAbs(schemaPath) {
			schemaPath = filepath.Join(base, schemaPath)
		}

		doc, err := schema.Load(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", route.Name(), err)
		}
		route.Document = doc
	}

	return m, nil
}

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// reservedInjectKeys mirrors the Echo context keys set by the middleware
// package (logger, request id, request document, rejection). Inject mode
// stores failures in the Echo context under the inject key, so reusing one of
// these would replace the request logger or the document mid-request.
var reservedInjectKeys = map[string]bool{
	"logger":           true,
	"request_id":       true,
	"request_document": true,
	"schema_rejection": true,
}

// Parse decodes and checks manifest bytes without touching the schema files.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	m := &Manifest{}
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Routes) == 0 {
		return nil, fmt.Errorf("manifest declares no routes")
	}

	seen := make(map[string]bool, len(m.Routes))
	for i := range m.Routes {
		route := &m.Routes[i]
		route.Method = strings.ToUpper(strings.TrimSpace(route.Method))

		switch {
		case !methods[route.Method]:
			return nil, fmt.Errorf("route %d: unsupported method %q", i, route.Method)
		case !strings.HasPrefix(route.Path, "/"):
			return nil, fmt.Errorf("route %d: path must start with \"/\"", i)
		case route.Schema == "":
			return nil, fmt.Errorf("route %s: schema is required", route.Name())
		}

		if _, err := validation.ParseErrorMode(route.ErrorMode); err != nil {
			return nil, fmt.Errorf("route %s: %w", route.Name(), err)
		}

		if reservedInjectKeys[route.InjectKey] {
			return nil, fmt.Errorf("route %s: inject_key %q is reserved", route.Name(), route.InjectKey)
		}

		if seen[route.Name()] {
			return nil, fmt.Errorf("route %s: declared more than once", route.Name())
		}
		seen[route.Name()] = true
	}

	return m, nil
}

// ValidationConfig turns the route's options into a wrapper Config.
func (r Route) ValidationConfig() (validation.Config, error) {
	mode, err := validation.ParseErrorMode(r.ErrorMode)
	if err != nil {
		return validation.Config{}, err
	}

	cfg := validation.Config{
		Engine: schema.Options{
			Draft:         r.Draft,
			UseDefaults:   r.UseDefaults,
			AssertFormat:  r.AssertFormat,
			AssertContent: r.AssertContent,
		},
		Target:       r.Target,
		ErrorMode:    mode,
		InjectKey:    r.InjectKey,
		CopyOnInject: r.CopyOnInject,
	}

	if r.DetailedErrors || r.ErrorMessage != "" {
		cfg.CreateError = r.createError
	}

	return cfg, nil
}

func (r Route) createError(failures schema.Failures) error {
	err := validation.DefaultCreateError(failures)
	if r.DetailedErrors {
		err = validation.DetailedCreateError(failures)
	}

	var httpErr *errs.HTTPError
	if r.ErrorMessage != "" && errors.As(err, &httpErr) {
		return httpErr.WithMessage(r.ErrorMessage)
	}
	return err
}
