// Package common contains shared constants and the error taxonomy used
// across the feedsync client layers.
package common

const (
	// AuthorizationHeaderName carries the session token on API requests.
	AuthorizationHeaderName = "Authorization"

	// RequestIDHeaderName carries a per-request correlation id.
	RequestIDHeaderName = "X-Request-Id"
)
