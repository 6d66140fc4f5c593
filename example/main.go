package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chimestock"
)

// consoleNotifier implements chimestock.Notifier by printing to stdout,
// so the demo exercises the notification path without SMTP credentials.
type consoleNotifier struct{}

func (consoleNotifier) Notify(ctx context.Context, subject, body string) bool {
	fmt.Printf("\n--- notification ---\nSubject: %s\n\n%s\n--------------------\n\n", subject, body)
	return true
}

func main() {
	// start mock shop (see mock_shop.go)
	go StartMockShopServer(":9999")
	time.Sleep(100 * time.Millisecond)

	store, err := chimestock.New(
		chimestock.WithInterval(5*time.Second),
		chimestock.WithNotifier(consoleNotifier{}),
		chimestock.WithChangeCallback(func(snap chimestock.Snapshot) {
			if snap.Changed {
				slog.Info("stock changed", "url", snap.URL, "stock", snap.State.String())
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = store.Add(ctx,
		"http://localhost:9999/item/1",
		"http://localhost:9999/item/2",
		"http://localhost:9999/item/3",
	)
	if err != nil {
		slog.Error("failed to add items", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Chimestock demo: watching 3 mock shop pages every 5 seconds.")
	fmt.Println("Stock flips every 10-30 seconds; notifications print to stdout.")
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	if err := store.Run(ctx); err != nil {
		slog.Error("watcher error", "error", err)
		os.Exit(1)
	}
}
