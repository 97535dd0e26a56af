package errs

import (
	"net/http"
)

// New builds an HTTPError for any status, deriving Code from the status text.
func New(status int, message string) *HTTPError {
	return &HTTPError{
		Code:    MakeUpperCaseWithUnderscores(http.StatusText(status)),
		Message: message,
		Status:  status,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// Extra payload:
//   - code: optional custom code (nil means "BAD_REQUEST")
//   - errors: optional field errors
//
// This is the error the validating wrapper replies with by default, called
// with no field errors so the schema stays private.
func NewBadRequestError(message string, code *string, errors []FieldError) *HTTPError {
	err := New(http.StatusBadRequest, message)

	// Note: a custom code is used verbatim, no formatting applied.
	if code != nil {
		err.Code = *code
	}
	err.Errors = errors

	return err
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string) *HTTPError {
	return New(http.StatusNotFound, message)
}

// NewInternalServerError creates a generic 500.
//
// The message is always the status text: the real cause goes to the logs,
// never to the client.
func NewInternalServerError() *HTTPError {
	return New(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
