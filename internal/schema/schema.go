// Package schema is the validation engine behind schemaguard.
//
// It compiles JSON Schema documents (using santhosh-tekuri/jsonschema),
// applies `default` keywords to the value being validated when asked to,
// and turns the engine's nested error tree into a flat list of failure
// records that the rest of the application can hand to clients.
//
// A compiled *Validator is immutable and safe to share between goroutines:
// every call to Validate returns its own Result.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceName is the in-memory location every compiled document is registered under.
// Each Compile call uses its own compiler, so the name never collides.
const resourceName = "schema.json"

// DefaultsMode controls how the `default` keyword is applied before validation.
type DefaultsMode string

const (
	// DefaultsOff leaves the value untouched.
	DefaultsOff DefaultsMode = "off"

	// DefaultsMissing fills properties that are absent from an object.
	DefaultsMissing DefaultsMode = "missing"

	// DefaultsEmpty also replaces properties that are null or "".
	DefaultsEmpty DefaultsMode = "empty"
)

// Options are the engine options forwarded to compilation.
//
// The zero value is usable: draft 2020-12, no defaults, format and content
// keywords treated as annotations only.
type Options struct {
	// Draft selects the JSON Schema dialect ("4", "6", "7", "2019-09", "2020-12").
	Draft string `json:"draft" yaml:"draft"`

	// UseDefaults decides whether `default` values are written into the value.
	UseDefaults DefaultsMode `json:"useDefaults" yaml:"use_defaults"`

	// AssertFormat makes the `format` keyword fail validation instead of annotating.
	AssertFormat bool `json:"assertFormat" yaml:"assert_format"`

	// AssertContent does the same for contentEncoding/contentMediaType.
	AssertContent bool `json:"assertContent" yaml:"assert_content"`
}

// drafts maps accepted Draft spellings to the engine's draft definitions.
var drafts = map[string]*jsonschema.Draft{
	"4":       jsonschema.Draft4,
	"draft4":  jsonschema.Draft4,
	"6":       jsonschema.Draft6,
	"draft6":  jsonschema.Draft6,
	"7":       jsonschema.Draft7,
	"draft7":  jsonschema.Draft7,
	"2019-09": jsonschema.Draft2019,
	"2020-12": jsonschema.Draft2020,
}

func (o Options) draft() (*jsonschema.Draft, error) {
	if o.Draft == "" {
		return jsonschema.Draft2020, nil
	}

	d, ok := drafts[strings.ToLower(o.Draft)]
	if !ok {
		return nil, fmt.Errorf("unsupported draft %q", o.Draft)
	}
	return d, nil
}

func (o Options) defaults() (DefaultsMode, error) {
	switch o.UseDefaults {
	case "", DefaultsOff:
		return DefaultsOff, nil
	case DefaultsMissing, DefaultsEmpty:
		return o.UseDefaults, nil
	default:
		return "", fmt.Errorf("unsupported defaults mode %q (must be one of: off, missing, empty)", o.UseDefaults)
	}
}

// Validator is one compiled schema bound to one set of options.
type Validator struct {
	schema   *jsonschema.Schema
	defaults DefaultsMode
}

// Compile builds a Validator from a schema document.
//
// doc can be:
//   - raw JSON ([]byte or json.RawMessage), used as-is
//   - any Go value that encoding/json can marshal (map[string]any, structs...)
//
// Errors cover bad options, documents that are not JSON, and documents that
// are not valid JSON Schema (checked against the draft's metaschema).
func Compile(doc any, opts Options) (*Validator, error) {
	draft, err := opts.draft()
	if err != nil {
		return nil, err
	}

	mode, err := opts.defaults()
	if err != nil {
		return nil, err
	}

	raw, err := documentBytes(doc)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = draft
	compiler.AssertFormat = opts.AssertFormat
	compiler.AssertContent = opts.AssertContent

	// `default` is an annotation: the engine only keeps it when asked to.
	compiler.ExtractAnnotations = mode != DefaultsOff

	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}

	return &Validator{schema: compiled, defaults: mode}, nil
}

func documentBytes(doc any) ([]byte, error) {
	switch d := doc.(type) {
	case nil:
		return nil, fmt.Errorf("schema document is nil")
	case json.RawMessage:
		return d, nil
	case []byte:
		return d, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return raw, nil
}
