// Package middleware provides the HTTP middleware chain: W3C request
// logging, Prometheus request metrics, and bearer token authentication.
package middleware
