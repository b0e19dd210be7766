// Package common contains shared constants and sentinel errors used across
// multichat components.
package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key) that
// carries the bearer access token.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the access token in the authorization value.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed back on every HTTP response.
const RequestIDHeaderName = "X-Request-ID"
