package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// shopState tracks availability and next flip time for a single item page.
type shopState struct {
	inStock    bool
	nextFlipAt time.Time
}

// StartMockShopServer runs a mock shop that serves item pages whose stock
// flips every 10-30 seconds. Pages contain the literal "In stock" marker
// when available. Call this in a goroutine before adding items to a Store.
func StartMockShopServer(addr string) {
	var (
		states = make(map[string]*shopState)
		mu     sync.Mutex
	)

	http.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path

		// simulate small latency variance
		time.Sleep(time.Duration(20+rand.Intn(80)) * time.Millisecond)

		mu.Lock()
		state, exists := states[key]
		if !exists {
			state = &shopState{
				inStock:    rand.Intn(2) == 0,
				nextFlipAt: time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second),
			}
			states[key] = state
		}

		if time.Now().After(state.nextFlipAt) {
			state.inStock = !state.inStock
			state.nextFlipAt = time.Now().Add(time.Duration(10+rand.Intn(21)) * time.Second)
			slog.Info("stock flip", "item", key, "in_stock", state.inStock)
		}
		inStock := state.inStock
		mu.Unlock()

		availability := "Out of stock"
		if inStock {
			availability = "In stock"
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body><h1>Item %s</h1><p>%s</p></body></html>", key, availability)
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock shop error", "error", err)
	}
}
