package schema

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// defaulter writes `default` values into a value before it is validated.
//
// It walks the same places the value can be described from:
//   - properties of objects
//   - items / prefixItems of arrays
//   - allOf branches and $ref targets (they always apply)
//
// anyOf/oneOf/if-then-else branches are skipped: which branch applies is
// only known after validation, and writing defaults from a losing branch
// would corrupt the value.
type defaulter struct {
	mode DefaultsMode
}

func newDefaulter(mode DefaultsMode) defaulter {
	return defaulter{mode: mode}
}

func (d defaulter) apply(s *jsonschema.Schema, value any) {
	d.walk(s, value, map[*jsonschema.Schema]bool{})
}

// walk applies s to value. seen holds the schemas already applied to this
// very value, which stops $ref/allOf cycles. Descending into a child value
// starts a fresh set.
func (d defaulter) walk(s *jsonschema.Schema, value any, seen map[*jsonschema.Schema]bool) {
	if s == nil || seen[s] {
		return
	}
	seen[s] = true

	d.walk(s.Ref, value, seen)
	for _, sub := range s.AllOf {
		d.walk(sub, value, seen)
	}

	switch v := value.(type) {
	case map[string]any:
		d.object(s, v)
	case []any:
		d.array(s, v)
	}
}

func (d defaulter) object(s *jsonschema.Schema, obj map[string]any) {
	for name, prop := range s.Properties {
		current, present := obj[name]

		if prop.Default != nil && (!present || (d.mode == DefaultsEmpty && isEmpty(current))) {
			obj[name] = clone(prop.Default)
		}

		if child, ok := obj[name]; ok {
			d.walk(prop, child, map[*jsonschema.Schema]bool{})
		}
	}
}

// array fills null/"" tuple positions (DefaultsEmpty only) and descends into
// elements. A slice cannot grow in place, so positions past the end of the
// array are left alone.
func (d defaulter) array(s *jsonschema.Schema, arr []any) {
	var tuple []*jsonschema.Schema
	var rest *jsonschema.Schema

	switch items := s.Items.(type) {
	case []*jsonschema.Schema:
		tuple = items
	case *jsonschema.Schema:
		rest = items
	}
	if len(s.PrefixItems) > 0 {
		tuple = s.PrefixItems
	}
	if s.Items2020 != nil {
		rest = s.Items2020
	}

	for i := range arr {
		item := rest
		if i < len(tuple) {
			item = tuple[i]
		}
		if item == nil {
			continue
		}

		if d.mode == DefaultsEmpty && item.Default != nil && isEmpty(arr[i]) {
			arr[i] = clone(item.Default)
		}
		d.walk(item, arr[i], map[*jsonschema.Schema]bool{})
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// clone deep-copies a default so two requests never share a map or slice.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
