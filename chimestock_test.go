package chimestock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier implements Notifier, capturing every send and
// signalling on a channel so tests can wait for notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
	notified chan struct{}
	ok       bool
}

func newRecordingNotifier(ok bool) *recordingNotifier {
	return &recordingNotifier{notified: make(chan struct{}, 16), ok: ok}
}

func (n *recordingNotifier) Notify(ctx context.Context, subject, body string) bool {
	n.mu.Lock()
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	n.mu.Unlock()
	n.notified <- struct{}{}
	return n.ok
}

func (n *recordingNotifier) last() (subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.subjects) == 0 {
		return "", ""
	}
	return n.subjects[len(n.subjects)-1], n.bodies[len(n.bodies)-1]
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := New(append([]Option{WithLogger(testLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func inStockServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// TestStore_AddDeduplicates verifies that adding the same URL twice results
// in exactly one tracked item, and that only the first add fetches.
func TestStore_AddDeduplicates(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("In stock"))
	}))
	defer server.Close()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, server.URL, server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Add(ctx, server.URL); err != nil {
		t.Fatalf("second Add() error = %v", err)
	}

	if got := store.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("baseline fetches = %d, want 1", got)
	}
}

// TestStore_AddValidatesURLs verifies fail-fast validation of tracked URLs.
func TestStore_AddValidatesURLs(t *testing.T) {
	store := newTestStore(t)

	tests := []string{
		"ftp://example.com/item",
		"not a url at all\x7f",
		"/relative/path",
	}
	for _, raw := range tests {
		if err := store.Add(context.Background(), raw); err == nil {
			t.Errorf("Add(%q) expected error, got nil", raw)
		}
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after rejected adds, want 0", store.Len())
	}
}

// TestStore_AddBaselineFailurePropagates verifies that a failing baseline
// refresh aborts the add and the item is not tracked.
func TestStore_AddBaselineFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	store := newTestStore(t)
	err := store.Add(context.Background(), url)
	if err == nil {
		t.Fatal("Add() expected error for unreachable server, got nil")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

// TestStore_Remove verifies removal by URL and that unknown URLs are ignored.
func TestStore_Remove(t *testing.T) {
	a := inStockServer(t, "In stock")
	b := inStockServer(t, "nothing here")

	store := newTestStore(t)
	if err := store.Add(context.Background(), a.URL, b.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	store.Remove(a.URL, "https://never-tracked.example.com/")

	if got := store.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if urls := store.URLs(); len(urls) != 1 || urls[0] != b.URL {
		t.Errorf("URLs() = %v, want [%s]", urls, b.URL)
	}
}

// TestStore_PollOnce_Aggregates verifies newly-in-stock and total counts
// across state transitions (the t0/t1/t2 scenario).
func TestStore_PollOnce_Aggregates(t *testing.T) {
	shop := &switchableShop{body: "In stock"}
	server := httptest.NewServer(http.HandlerFunc(shop.handler))
	defer server.Close()

	store := newTestStore(t)
	ctx := context.Background()

	// t0: baseline in stock - tracked but not a change
	if err := store.Add(ctx, server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("t0 PollOnce() error = %v", err)
	}
	if store.NewInStock() != 0 || store.TotalInStock() != 1 {
		t.Fatalf("t0 counts = (%d new, %d total), want (0, 1)",
			store.NewInStock(), store.TotalInStock())
	}

	// t1: went out of stock - counts as a change, drops the total
	shop.set("Out of stock")
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("t1 PollOnce() error = %v", err)
	}
	if store.NewInStock() != 1 || store.TotalInStock() != 0 {
		t.Fatalf("t1 counts = (%d new, %d total), want (1, 0)",
			store.NewInStock(), store.TotalInStock())
	}

	// t2: back in stock - changed again
	shop.set("In stock")
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("t2 PollOnce() error = %v", err)
	}
	if store.NewInStock() != 1 || store.TotalInStock() != 1 {
		t.Fatalf("t2 counts = (%d new, %d total), want (1, 1)",
			store.NewInStock(), store.TotalInStock())
	}
}

// TestStore_PollOnce_DebugMode verifies that debug mode reports every item
// as newly and currently in stock, regardless of real state.
func TestStore_PollOnce_DebugMode(t *testing.T) {
	a := inStockServer(t, "In stock")
	b := inStockServer(t, "sold out, sorry")

	store := newTestStore(t, WithDebug(true))
	ctx := context.Background()

	if err := store.Add(ctx, a.URL, b.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	if store.NewInStock() != 2 || store.TotalInStock() != 2 {
		t.Errorf("debug counts = (%d new, %d total), want (2, 2)",
			store.NewInStock(), store.TotalInStock())
	}
}

// TestStore_PollOnce_FetchFailurePropagates asserts the documented
// cycle-level failure behavior: one bad URL fails the whole cycle and the
// previous aggregates stay in place.
func TestStore_PollOnce_FetchFailurePropagates(t *testing.T) {
	good := inStockServer(t, "In stock")
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("In stock"))
	}))

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, good.URL, bad.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("healthy PollOnce() error = %v", err)
	}
	if store.TotalInStock() != 2 {
		t.Fatalf("TotalInStock() = %d, want 2", store.TotalInStock())
	}

	// break one of the two pages
	bad.Close()

	err := store.PollOnce(ctx)
	if err == nil {
		t.Fatal("PollOnce() expected error with one unreachable page, got nil")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}

	// aggregates still describe the last completed cycle
	if store.TotalInStock() != 2 {
		t.Errorf("TotalInStock() after failed cycle = %d, want 2", store.TotalInStock())
	}
}

// TestSubjectLine verifies the exact notification subject format.
func TestSubjectLine(t *testing.T) {
	tests := []struct {
		newCount, totalCount int
		want                 string
	}{
		{2, 5, "(2 new, 5 total) items in stock"},
		{1, 1, "(1 new, 1 total) items in stock"},
		{0, 0, "(0 new, 0 total) items in stock"},
	}
	for _, tt := range tests {
		if got := subjectLine(tt.newCount, tt.totalCount); got != tt.want {
			t.Errorf("subjectLine(%d, %d) = %q, want %q", tt.newCount, tt.totalCount, got, tt.want)
		}
	}
}

// TestStore_NotificationBody verifies that the body lists exactly the
// changed items, or every item in debug mode.
func TestStore_NotificationBody(t *testing.T) {
	shopA := &switchableShop{body: "In stock"}
	serverA := httptest.NewServer(http.HandlerFunc(shopA.handler))
	defer serverA.Close()
	serverB := inStockServer(t, "In stock")

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, serverA.URL, serverB.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// only A flips
	shopA.set("all gone")
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	body := store.notificationBody()
	if !strings.Contains(body, serverA.URL) {
		t.Errorf("body missing changed item %s:\n%s", serverA.URL, body)
	}
	if strings.Contains(body, serverB.URL) {
		t.Errorf("body lists unchanged item %s:\n%s", serverB.URL, body)
	}
	if !strings.Contains(body, "Item is out of stock") {
		t.Errorf("body missing stock status line:\n%s", body)
	}
}

// TestStore_NotificationBody_Debug verifies that debug mode lists every
// tracked item regardless of change.
func TestStore_NotificationBody_Debug(t *testing.T) {
	a := inStockServer(t, "In stock")
	b := inStockServer(t, "nope")

	store := newTestStore(t, WithDebug(true))
	ctx := context.Background()

	if err := store.Add(ctx, a.URL, b.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	body := store.notificationBody()
	for _, url := range []string{a.URL, b.URL} {
		if !strings.Contains(body, url) {
			t.Errorf("debug body missing %s:\n%s", url, body)
		}
	}
}

// TestStore_Run_NotifiesOnChange runs the full loop against a page that
// goes out of stock after the baseline and verifies the composed email.
func TestStore_Run_NotifiesOnChange(t *testing.T) {
	shop := &switchableShop{body: "In stock"}
	server := httptest.NewServer(http.HandlerFunc(shop.handler))
	defer server.Close()

	notifier := newRecordingNotifier(true)
	store := newTestStore(t,
		WithInterval(20*time.Millisecond),
		WithNotifier(notifier),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Add(ctx, server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// flip after the baseline so the first cycle already sees a change
	shop.set("Out of stock")

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx) }()

	select {
	case <-notifier.notified:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	subject, body := notifier.last()
	if subject != "(1 new, 0 total) items in stock" {
		t.Errorf("subject = %q, want %q", subject, "(1 new, 0 total) items in stock")
	}
	if !strings.Contains(body, server.URL) {
		t.Errorf("body missing item URL:\n%s", body)
	}
}

// TestStore_Run_FailedSendDoesNotStopLoop verifies best-effort notification
// semantics: the loop keeps polling after a failed send.
func TestStore_Run_FailedSendDoesNotStopLoop(t *testing.T) {
	shop := &switchableShop{body: "In stock"}
	server := httptest.NewServer(http.HandlerFunc(shop.handler))
	defer server.Close()

	notifier := newRecordingNotifier(false) // every send fails
	store := newTestStore(t,
		WithInterval(20*time.Millisecond),
		WithDebug(true), // every cycle notifies
		WithNotifier(notifier),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Add(ctx, server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- store.Run(ctx) }()

	// two failed sends prove the loop survived the first failure
	for i := 0; i < 2; i++ {
		select {
		case <-notifier.notified:
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for notification %d", i+1)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

// TestStore_Run_PollFailureTerminates verifies the documented fail-loud
// behavior: a failing fetch ends the loop with the cycle's error.
func TestStore_Run_PollFailureTerminates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("In stock"))
	}))

	store := newTestStore(t, WithInterval(20*time.Millisecond))
	ctx := context.Background()

	if err := store.Add(ctx, server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// the very first cycle inside Run hits a dead server
	server.Close()

	err := store.Run(ctx)
	if err == nil {
		t.Fatal("Run() expected error after fetch failure, got nil")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("error = %v, want *FetchError", err)
	}
}

// TestStore_ChangeCallbacks verifies that callbacks fire per snapshot and
// that a panicking callback is recovered without stopping the others.
func TestStore_ChangeCallbacks(t *testing.T) {
	server := inStockServer(t, "In stock")

	var calls atomic.Int64
	store := newTestStore(t,
		WithChangeCallback(func(snap Snapshot) {
			panic("misbehaving callback")
		}),
		WithChangeCallback(func(snap Snapshot) {
			calls.Add(1)
		}),
	)
	ctx := context.Background()

	if err := store.Add(ctx, server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.PollOnce(ctx); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("second callback invoked %d times, want 1", got)
	}
}

// TestStore_String verifies the rendered item listing.
func TestStore_String(t *testing.T) {
	server := inStockServer(t, "In stock")

	store := newTestStore(t)
	if err := store.Add(context.Background(), server.URL); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got := store.String()
	want := "Item is in stock\n" + server.URL + "\n"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// TestStore_PollOnce_Empty verifies a poll with no tracked items succeeds
// with zero aggregates.
func TestStore_PollOnce_Empty(t *testing.T) {
	store := newTestStore(t)
	if err := store.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}
	if store.NewInStock() != 0 || store.TotalInStock() != 0 {
		t.Errorf("counts = (%d, %d), want (0, 0)", store.NewInStock(), store.TotalInStock())
	}
}
