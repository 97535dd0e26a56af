// Package validation contains the validating handler wrapper.
//
// Given a JSON Schema and a Config, New compiles the schema once and
// returns a Wrapper. Wrapper.Wrap decorates a downstream handler: on every
// call it reads the configured target out of the request document,
// validates it, and then either calls the handler or applies the error
// mode:
//
//   - Reply:  build the error with CreateError and hand it to the reply
//     collaborator (the HTTP runtime's "send this error" primitive).
//   - Throw:  build the error with CreateError and return it.
//   - Inject: attach the failure list to the request under InjectKey and
//     call the handler anyway.
//
// The package knows nothing about HTTP. The Echo adapter lives in the
// middleware package.
package validation
