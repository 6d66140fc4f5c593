// Package chimestock watches web pages for stock changes and sends email
// notifications when tracked items become available. Applicably, it helps
// the user obtain rare items during shortages.
//
// Chimestock is designed as an SDK-first library: construct a [Store] with
// functional options, add the pages to watch, and run it under a context.
// The bundled CLI (cmd/chimestock) wraps the same API with YAML
// configuration and interactive credential prompts.
//
// # Quick Start
//
//	store, _ := chimestock.New(
//	    chimestock.WithInterval(15 * time.Minute),
//	    chimestock.WithNotifier(notifier), // any Notifier implementation
//	)
//	if err := store.Add(ctx, "https://shop.example.com/item/1"); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	store.Run(ctx) // blocks until cancelled or a poll cycle fails
//
// # Stock tracking
//
// Each tracked page is an [Item] with a three-state machine: unknown until
// the first successful fetch, then in or out of stock depending on whether
// the marker pattern (default "In stock") appears in the page. A change is
// an edge between the two known states; the baseline observation made when
// a URL is added never counts as one. Every refresh yields an immutable
// [Snapshot] rather than mutating shared flags, which keeps concurrent
// refreshes within a cycle race-free.
//
// # Notification
//
// When a poll cycle finds newly in-stock items, the Store composes an
// email — subject "(N new, M total) items in stock", body listing each
// changed item — and hands it to its [Notifier]. Sending is best-effort: a
// failed send is logged and dropped, never fatal. Per-item fetch failures
// are the opposite, deliberately loud: one bad URL fails its poll cycle
// and stops [Store.Run], rather than being skipped silently forever.
//
// # Architecture
//
// Chimestock consists of internal packages not part of the public API:
//
//   - internal/fetch: HTTP client with fixed timeouts and body limits
//   - internal/notify: best-effort SMTP notification (STARTTLS submission)
//
// The config package parses the YAML file used by the CLI.
package chimestock
