package validation

import "strings"

// ErrorMode is the policy applied when a request fails validation.
type ErrorMode string

const (
	// Reply sends the error through the reply collaborator; the handler is skipped.
	Reply ErrorMode = "reply"

	// Throw returns the error to the caller of the wrapped handler.
	Throw ErrorMode = "throw"

	// Inject attaches the failures to the request and calls the handler.
	Inject ErrorMode = "inject"
)

// Valid reports whether m is one of Reply, Throw or Inject.
func (m ErrorMode) Valid() bool {
	switch m {
	case Reply, Throw, Inject:
		return true
	}
	return false
}

// ParseErrorMode reads an error mode from configuration text.
// Matching ignores case and surrounding spaces; "" means Reply.
func ParseErrorMode(s string) (ErrorMode, error) {
	normalized := ErrorMode(strings.ToLower(strings.TrimSpace(s)))
	if normalized == "" {
		return Reply, nil
	}
	if !normalized.Valid() {
		return "", &ConfigurationError{Field: "errorMode", Value: s}
	}
	return normalized, nil
}
