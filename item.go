package chimestock

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"chimestock/internal/fetch"
)

// Item tracks the stock state of a single page.
//
// An Item holds the page URL, the marker pattern that denotes availability,
// and the last known [StockState]. Items are created by the [Store] — one
// per tracked URL — and refreshed once per poll cycle.
//
// Each Refresh derives the new state from marker presence and produces an
// immutable [Snapshot]; the changed flag is recomputed on every refresh,
// never accumulated. An Item is only ever refreshed by one goroutine at a
// time (the Store hands each item to a single worker per cycle).
type Item struct {
	url     string
	marker  *regexp.Regexp
	state   StockState
	changed bool
}

// newItem creates an Item in the [StockUnknown] state.
func newItem(url string, marker *regexp.Regexp) *Item {
	return &Item{
		url:    url,
		marker: marker,
		state:  StockUnknown,
	}
}

// URL returns the tracked page URL.
func (it *Item) URL() string {
	return it.url
}

// State returns the last known stock state.
// Returns [StockUnknown] before the first successful refresh.
func (it *Item) State() StockState {
	return it.state
}

// Changed reports whether the most recent refresh flipped the item between
// known states. The first observation of an item never counts as a change.
func (it *Item) Changed() bool {
	return it.changed
}

// Refresh fetches the page and re-derives the stock state.
//
// Returns a [*FetchError] if the fetch fails and a [*DataMissingError] if
// the response body is empty. On success it records the new state and
// returns a [Snapshot] describing the outcome.
func (it *Item) Refresh(ctx context.Context, client *fetch.Client) (Snapshot, error) {
	resp, err := client.Fetch(ctx, it.url)
	if err != nil {
		return Snapshot{}, &FetchError{URL: it.url, Err: err}
	}
	if len(resp.Body) == 0 {
		return Snapshot{}, &DataMissingError{URL: it.url}
	}

	state := StockOut
	if it.marker.Match(resp.Body) {
		state = StockIn
	}

	snap := Snapshot{
		URL:       it.url,
		State:     state,
		Changed:   it.state.Known() && state != it.state,
		Latency:   resp.Latency,
		CheckedAt: time.Now(),
	}

	it.state = snap.State
	it.changed = snap.Changed
	return snap, nil
}

// String renders the item as a notification line, e.g.
//
//	Item is in stock
//	https://shop.example.com/item/1
//
// followed by a trailing newline. Items whose state is still unknown render
// as out of stock; in practice they are never reported, since the Store
// refreshes every item before composing a message.
func (it *Item) String() string {
	stock := "out of"
	if it.state == StockIn {
		stock = "in"
	}
	return fmt.Sprintf("Item is %s stock\n%s\n", stock, it.url)
}
