package errs

import "strings"

// FieldError is one field-level problem in a rejected request.
// Example:
//
//	{ "field": "items.0.qty", "error": "must be >= 1 but found 0", "rule": "minimum" }
type FieldError struct {
	// Field is the dotted path of the offending value.
	Field string `json:"field"`

	// Error is the human-readable message.
	Error string `json:"error"`

	// Rule is the schema keyword that was violated, when known.
	Rule string `json:"rule,omitempty"`
}

// HTTPError is the error type rendered to API clients.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "BAD_REQUEST").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Errors: per-field errors (validation), omitted when empty.
type HTTPError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Error returns the Message, so logging the error shows what the client saw.
func (e *HTTPError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, &HTTPError{}) match any *HTTPError.
// It compares the type only, not Code or Status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of e with Message replaced.
// Handy for per-route messages built from a shared template.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	return &HTTPError{
		Code:    e.Code,
		Message: message,
		Status:  e.Status,
		Errors:  e.Errors,
	}
}

// MakeUpperCaseWithUnderscores turns status text into an error code.
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
