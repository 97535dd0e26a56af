package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Failure is one structured validation-failure record.
//
// Example:
//
//	{ "instancePath": "/token", "schemaPath": "/properties/token/type",
//	  "keyword": "type", "message": "expected string, but got number" }
type Failure struct {
	// InstancePath is the JSON pointer of the offending value, relative to
	// the validated value ("" means the value itself).
	InstancePath string `json:"instancePath"`

	// SchemaPath is the keyword location inside the schema.
	SchemaPath string `json:"schemaPath"`

	// Keyword is the rule that was violated (type, required, minimum...).
	Keyword string `json:"keyword"`

	// Message states the expected constraint in plain words.
	Message string `json:"message"`
}

// Field returns InstancePath in dot notation ("/items/0/name" -> "items.0.name").
func (f Failure) Field() string {
	p := strings.TrimPrefix(f.InstancePath, "/")
	if p == "" {
		return ""
	}

	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = unescapePointer(part)
	}
	return strings.Join(parts, ".")
}

// Failures is a list of failure records that satisfies error, so a custom
// error constructor can return it directly.
type Failures []Failure

func (f Failures) Error() string {
	switch len(f) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + f[0].describe()
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", f[0].describe(), len(f)-1)
	}
}

func (f Failure) describe() string {
	if field := f.Field(); field != "" {
		return field + ": " + f.Message
	}
	return f.Message
}

// Result is the outcome of one Validate call.
// Valid and Failures always come from the same call.
type Result struct {
	Valid    bool     `json:"valid"`
	Failures Failures `json:"failures,omitempty"`
}

// Validate checks value against the compiled schema.
//
// When the validator was compiled with UseDefaults, defaults are written
// into value first. Maps and slices are mutated in place, so the caller sees
// the defaulted data through its own references.
//
// value must be made of JSON-shaped Go types (map[string]any, []any, string,
// float64, json.Number, bool, nil). Anything else fails with a single
// "type" failure instead of panicking.
func (v *Validator) Validate(value any) Result {
	if v.defaults != DefaultsOff {
		newDefaulter(v.defaults).apply(v.schema, value)
	}

	err := v.schema.Validate(value)
	if err == nil {
		return Result{Valid: true}
	}

	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return Result{Failures: flatten(validationErr)}
	}

	// InvalidJSONTypeError and friends: the value itself is not JSON.
	return Result{Failures: Failures{{
		Keyword: "type",
		Message: err.Error(),
	}}}
}

// flatten collects the leaf causes of the engine's error tree.
//
// The root error only says "does not validate with schema.json#"; the
// useful information lives in the leaves.
func flatten(root *jsonschema.ValidationError) Failures {
	var out Failures

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Failure{
				InstancePath: e.InstanceLocation,
				SchemaPath:   e.KeywordLocation,
				Keyword:      keyword(e.KeywordLocation),
				Message:      e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(root)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].InstancePath != out[j].InstancePath {
			return out[i].InstancePath < out[j].InstancePath
		}
		return out[i].SchemaPath < out[j].SchemaPath
	})

	return out
}

// keyword returns the last segment of a keyword location.
func keyword(location string) string {
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return unescapePointer(location[i+1:])
	}
	return location
}

func unescapePointer(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	return strings.ReplaceAll(s, "~0", "~")
}
