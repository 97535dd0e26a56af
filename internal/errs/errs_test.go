package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBadRequestError(t *testing.T) {
	err := NewBadRequestError("Bad request", nil, nil)

	assert.Equal(t, "BAD_REQUEST", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "Bad request", err.Error())
	assert.Empty(t, err.Errors)

	code := "SCHEMA_MISMATCH"
	custom := NewBadRequestError("nope", &code, []FieldError{{Field: "a", Error: "bad"}})
	assert.Equal(t, "SCHEMA_MISMATCH", custom.Code)
	assert.Len(t, custom.Errors, 1)
}

func TestHTTPError_Is(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewNotFoundError("Route not found"))

	assert.True(t, errors.Is(wrapped, &HTTPError{}))
	assert.False(t, errors.Is(errors.New("plain"), &HTTPError{}))

	var httpErr *HTTPError
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, "NOT_FOUND", httpErr.Code)
}

func TestHTTPError_WithMessage(t *testing.T) {
	base := NewBadRequestError("Bad request", nil, nil)
	custom := base.WithMessage("Order payload rejected")

	assert.Equal(t, "Order payload rejected", custom.Message)
	assert.Equal(t, "Bad request", base.Message)
	assert.Equal(t, base.Status, custom.Status)
}

func TestNewInternalServerError(t *testing.T) {
	err := NewInternalServerError()
	assert.Equal(t, "INTERNAL_SERVER_ERROR", err.Code)
	assert.Equal(t, "Internal Server Error", err.Message)
}

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	assert.Equal(t, "UNPROCESSABLE_ENTITY", MakeUpperCaseWithUnderscores("Unprocessable Entity"))
}
