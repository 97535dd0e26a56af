// Package errs defines the error shapes returned to API clients.
//
// Every error that reaches the global error handler is rendered as an
// HTTPError, so clients always get the same JSON structure:
//
//	{ "code": "BAD_REQUEST", "message": "Bad request", "status": 400, "errors": [] }
//
// Field-level errors are only filled in when the route opted into detailed
// validation errors.
package errs
