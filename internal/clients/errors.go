// Package clients holds the error taxonomy shared by the upstream API
// clients. Every client maps its failures onto these sentinels so the
// aggregation layer can tell a definitive "not found" (cacheable) from a
// transient upstream problem (not cacheable) without provider-specific
// handling.
package clients

import "errors"

var (
	// ErrNotConfigured means the minimum credentials or URL for the client
	// are missing. Callers treat it as an empty result, never a failure.
	ErrNotConfigured = errors.New("client not configured")

	// ErrNotFound is a definitive negative answer from the upstream (404
	// class). Safe to cache negatively.
	ErrNotFound = errors.New("not found upstream")

	// ErrUpstream covers transport failures, timeouts, non-2xx statuses and
	// unparseable payloads. Never cached; the next call retries the network.
	ErrUpstream = errors.New("upstream unavailable")
)
