package chimestock

import "fmt"

// FetchError indicates that fetching a tracked page failed: a network
// error, a timeout, or a response that is not text.
//
// FetchError propagates out of the poll cycle it occurred in; the watcher
// does not retry or skip failing items. Use [errors.As] to recover the
// failing URL.
type FetchError struct {
	// URL is the page whose fetch failed.
	URL string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause, supporting errors.Is and errors.As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// DataMissingError indicates that a tracked page was fetched successfully
// but returned an empty body, so no stock state could be derived.
//
// Like [FetchError], it propagates out of the poll cycle it occurred in.
type DataMissingError struct {
	// URL is the page that returned no data.
	URL string
}

// Error implements the error interface.
func (e *DataMissingError) Error() string {
	return fmt.Sprintf("no data in response from %s", e.URL)
}
