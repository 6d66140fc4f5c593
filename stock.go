package chimestock

import "time"

// StockState represents the availability of a tracked item.
//
// An item is [StockUnknown] until its first successful refresh; after that
// it is either [StockIn] or [StockOut] depending on whether the marker was
// found in the fetched page. Using a string type keeps log output and
// notification text human-readable while preserving type safety through
// the defined constants.
type StockState string

const (
	// StockUnknown indicates the item has not yet been successfully fetched.
	StockUnknown StockState = "unknown"

	// StockIn indicates the marker was present in the last fetched page.
	StockIn StockState = "in stock"

	// StockOut indicates the marker was absent from the last fetched page.
	StockOut StockState = "out of stock"
)

// String returns the string representation of the state.
// This implements the fmt.Stringer interface.
func (s StockState) String() string {
	return string(s)
}

// Known reports whether the state has been established by at least one
// successful refresh.
func (s StockState) Known() bool {
	return s == StockIn || s == StockOut
}

// Snapshot is the immutable result of refreshing a single tracked item.
//
// Snapshot values are safe to share across goroutines: a refresh produces a
// new Snapshot rather than mutating shared flags in place. Changed is an
// edge detector between known states only; the first observation of an item
// never reports Changed, regardless of marker presence.
type Snapshot struct {
	// URL is the tracked page that was fetched.
	URL string

	// State is the availability derived from this fetch.
	State StockState

	// Changed reports whether State differs from the previously known
	// state. Always false when the prior state was [StockUnknown].
	Changed bool

	// Latency is the time taken to fetch the page.
	Latency time.Duration

	// CheckedAt is the timestamp when the refresh was performed.
	CheckedAt time.Time
}
