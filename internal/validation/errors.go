package validation

import "fmt"

// SchemaCompilationError is returned by New when the schema (or the engine
// options) cannot be compiled. No wrapper is created.
type SchemaCompilationError struct {
	Err error
}

func (e *SchemaCompilationError) Error() string {
	return "schema compilation failed: " + e.Err.Error()
}

func (e *SchemaCompilationError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a programmer mistake in Config, such as an
// unknown error mode. It never describes the request being validated.
type ConfigurationError struct {
	// Field is the offending option (errorMode, target, reply...).
	Field string

	// Value is the rejected value as written by the caller.
	Value string
}

func (e *ConfigurationError) Error() string {
	switch e.Field {
	case "errorMode":
		return fmt.Sprintf("unknown error mode: %q", e.Value)
	case "target":
		return fmt.Sprintf("invalid target path: %q", e.Value)
	case "reply":
		return "error mode \"reply\" needs a reply function"
	default:
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	}
}
