package validation

import (
	"maps"
	"strconv"
	"strings"
)

// Request is the request document the wrapper works on.
//
// It is a plain JSON-shaped tree owned by the caller, for example:
//
//	{ "body": {...}, "query": {...}, "params": {...}, "headers": {...} }
//
// The wrapper only reads from it, except in Inject mode where it adds one key.
type Request map[string]any

// Clone returns a shallow copy of the request.
func (r Request) Clone() Request {
	return maps.Clone(r)
}

// Lookup reads the value at a dotted path ("query.apiKey", "body.items.0").
//
// The lookup is lenient: when a segment is missing, or an intermediate value
// is nil or not a container, it reports ok=false instead of failing.
// Numeric segments index into lists.
//
// Maps and slices are returned as-is, not copied, so writes through the
// result are visible in the request.
func Lookup(req Request, target string) (value any, ok bool) {
	return lookup(req, splitTarget(target))
}

func splitTarget(target string) []string {
	return strings.Split(target, ".")
}

func lookup(req Request, segments []string) (any, bool) {
	var current any = map[string]any(req)

	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next

		case Request:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next

		case map[string]string:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next

		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]

		default:
			// nil or a scalar in the middle of the path.
			return nil, false
		}
	}

	return current, true
}

// engineValue turns the request shapes lookup accepts into the ones the
// schema engine validates, which only knows map[string]any for objects.
//
//   - Request is converted, not copied: both types share the same map, so
//     defaults written during validation land in the caller's request.
//   - map[string]string is copied. Its values can only be strings anyway, so
//     a non-string default would have nowhere to go; defaults applied to
//     such a target are visible to the validator only.
func engineValue(value any) any {
	switch v := value.(type) {
	case Request:
		return map[string]any(v)
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, s := range v {
			out[key] = s
		}
		return out
	default:
		return value
	}
}
