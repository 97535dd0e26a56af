package validation

import (
	"strings"

	"github.com/deppfellow/schemaguard/internal/errs"
	"github.com/deppfellow/schemaguard/internal/schema"
)

const (
	// DefaultTarget is where the value to validate is read from.
	DefaultTarget = "body"

	// DefaultInjectKey is the request key used by Inject mode.
	DefaultInjectKey = "validationErrors"
)

// Config is the wrapper configuration. Zero fields take the documented
// defaults; New copies the result, so changing a Config after New has no effect.
type Config struct {
	// Engine is forwarded to schema compilation.
	Engine schema.Options

	// Target is the dotted path of the value to validate. Default: "body".
	Target string

	// ErrorMode picks the failure policy. Default: Reply.
	ErrorMode ErrorMode

	// InjectKey names the request key that receives the failures in Inject
	// mode. Default: "validationErrors".
	InjectKey string

	// CreateError builds the error surfaced in Reply and Throw modes.
	// Default: DefaultCreateError (a generic 400 without schema detail).
	CreateError func(failures schema.Failures) error

	// CopyOnInject hands the handler a shallow copy of the request in Inject
	// mode instead of adding the key to the caller's request.
	CopyOnInject bool
}

// DefaultCreateError is the default error constructor: a plain
// 400 Bad Request that does not leak the schema.
func DefaultCreateError(_ schema.Failures) error {
	return errs.NewBadRequestError("Bad request", nil, nil)
}

// DetailedCreateError is an alternative constructor that exposes the
// failures as field errors in the 400 response.
func DetailedCreateError(failures schema.Failures) error {
	return errs.NewBadRequestError("Validation failed", nil, FieldErrors(failures))
}

// FieldErrors converts failure records into the HTTP field error shape.
//
// The field is the dotted instance path; an empty path (the target value
// itself) is reported as "value".
func FieldErrors(failures schema.Failures) []errs.FieldError {
	if len(failures) == 0 {
		return nil
	}

	out := make([]errs.FieldError, 0, len(failures))
	for _, f := range failures {
		field := f.Field()
		if field == "" {
			field = "value"
		}
		out = append(out, errs.FieldError{
			Field: field,
			Error: f.Message,
			Rule:  f.Keyword,
		})
	}
	return out
}

// withDefaults returns a copy of c with empty fields filled in.
func (c Config) withDefaults() Config {
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if c.ErrorMode == "" {
		c.ErrorMode = Reply
	}
	if c.InjectKey == "" {
		c.InjectKey = DefaultInjectKey
	}
	if c.CreateError == nil {
		c.CreateError = DefaultCreateError
	}
	return c
}

// validate rejects configurations that could only fail at request time.
func (c Config) validate() error {
	if !c.ErrorMode.Valid() {
		return &ConfigurationError{Field: "errorMode", Value: string(c.ErrorMode)}
	}

	for _, segment := range strings.Split(c.Target, ".") {
		if segment == "" {
			return &ConfigurationError{Field: "target", Value: c.Target}
		}
	}

	return nil
}
