// Package middleware holds the Echo middleware of the gateway.
//
// Besides the usual cross-cutting concerns (request IDs, request-scoped
// logging, CORS, panic recovery, New Relic tracing, the global error
// handler) it contains the schema middleware: the Echo adapter that runs a
// validation.Wrapper in front of a route.
package middleware
