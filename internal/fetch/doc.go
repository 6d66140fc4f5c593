// Package fetch provides the HTTP client used to pull tracked pages.
//
// This package is internal to chimestock. It wraps net/http with the
// behavior page polling needs: a fixed per-request timeout, a 1MB response
// body cap, connection pooling limits, and rejection of non-text responses.
//
// Users of the chimestock library should not need to interact with this
// package directly. Fetching is managed internally by the Store.
package fetch
