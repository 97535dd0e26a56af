// Package handler holds the HTTP handlers served behind the schema guards.
//
// Manifest routes echo the validated request document back to the client;
// the system routes report the gateway's health.
package handler
