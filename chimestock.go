package chimestock

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chimestock/internal/fetch"
)

const (
	defaultInterval       = 15 * time.Minute
	defaultTimeout        = 10 * time.Second
	defaultMaxConcurrency = 10

	// DefaultMarker is the pattern matched against fetched pages when no
	// custom marker is configured via [WithMarker].
	DefaultMarker = "In stock"
)

// Notifier delivers a stock-change notification.
//
// Notify reports delivery as a boolean rather than an error: notification
// is best-effort, and a failed send must never stop the poll loop.
// The SMTP implementation lives in internal/notify; tests substitute
// recording fakes.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) bool
}

// Store periodically checks a set of tracked pages for stock changes and
// sends an email notification when any item becomes newly available.
//
// A Store is created with [New] using functional options, loaded with URLs
// via [Store.Add], and driven either one cycle at a time with
// [Store.PollOnce] or continuously with [Store.Run]. The typical lifecycle:
//
//	store, err := chimestock.New(
//	    chimestock.WithInterval(15 * time.Minute),
//	    chimestock.WithNotifier(notifier),
//	)
//	if err != nil {
//	    slog.Error("failed to create store", "error", err)
//	    os.Exit(1)
//	}
//	if err := store.Add(ctx, urls...); err != nil {
//	    slog.Error("failed to add items", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	store.Run(ctx) // blocks until context cancelled or a poll cycle fails
//
// Items are tracked uniquely by URL; adding a URL twice tracks it once.
// Aggregate counts ([Store.NewInStock], [Store.TotalInStock]) reflect only
// the most recent completed poll cycle.
type Store struct {
	interval       time.Duration
	maxConcurrency int
	marker         *regexp.Regexp
	debug          bool
	logger         *slog.Logger
	notifier       Notifier
	callbacks      []func(Snapshot)
	client         *fetch.Client

	mu           sync.Mutex
	items        map[string]*Item
	newInStock   int
	totalInStock int
}

// New creates a [Store] with the given options.
//
// All options have defaults: 15 minute poll interval, 10 second fetch
// timeout, max concurrency 10, marker [DefaultMarker], debug off, and
// [slog.Default] for logging. A Store starts empty; track pages with
// [Store.Add].
//
// Returns an error if any option is invalid or the marker pattern does not
// compile as a regular expression.
func New(opts ...Option) (*Store, error) {
	cfg := &storeConfig{
		interval:       defaultInterval,
		timeout:        defaultTimeout,
		maxConcurrency: defaultMaxConcurrency,
		marker:         DefaultMarker,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	marker, err := regexp.Compile(cfg.marker)
	if err != nil {
		return nil, fmt.Errorf("invalid marker pattern %q: %w", cfg.marker, err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		interval:       cfg.interval,
		maxConcurrency: cfg.maxConcurrency,
		marker:         marker,
		debug:          cfg.debug,
		logger:         logger,
		notifier:       cfg.notifier,
		callbacks:      cfg.callbacks,
		client:         fetch.NewClient(cfg.timeout),
		items:          make(map[string]*Item),
	}, nil
}

// Add begins tracking the given URLs.
//
// Each URL not already tracked gets a new [Item] whose baseline state is
// established by a synchronous first refresh before the item joins the set;
// the first observation never counts as a change, so adding an already
// in-stock page does not trigger a notification. URLs already tracked are
// skipped. Returns an error — aborting the remaining URLs — if a URL is
// invalid or its baseline refresh fails.
func (s *Store) Add(ctx context.Context, urls ...string) error {
	for _, raw := range urls {
		if err := validateURL(raw); err != nil {
			return err
		}

		s.mu.Lock()
		_, tracked := s.items[raw]
		s.mu.Unlock()
		if tracked {
			continue
		}

		item := newItem(raw, s.marker)
		snap, err := item.Refresh(ctx, s.client)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.items[raw] = item
		s.mu.Unlock()

		s.logger.Debug("item added",
			"url", raw,
			"stock", snap.State.String(),
		)
	}
	return nil
}

// Remove stops tracking the given URLs. Unknown URLs are ignored.
func (s *Store) Remove(urls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		delete(s.items, u)
	}
}

// Len returns the number of tracked items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// URLs returns the tracked URLs in lexical order.
func (s *Store) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]string, 0, len(s.items))
	for u := range s.items {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// NewInStock returns the number of items that became newly in stock during
// the most recent completed poll cycle. In debug mode this is the number of
// tracked items.
func (s *Store) NewInStock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newInStock
}

// TotalInStock returns the number of items in stock as of the most recent
// completed poll cycle. In debug mode this is the number of tracked items.
func (s *Store) TotalInStock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalInStock
}

// refreshOutcome pairs a refresh result with its error for collection
// across the cycle's worker pool.
type refreshOutcome struct {
	snap Snapshot
	err  error
}

// PollOnce refreshes every tracked item and recomputes the aggregates.
//
// Refreshes run concurrently within the cycle, bounded by the configured
// max concurrency; PollOnce waits for all of them before aggregating.
// If any refresh fails, the cycle fails: PollOnce returns the first error
// and leaves the previous aggregates in place. Items that refreshed before
// the failure keep their updated state — one bad URL aborts the cycle, not
// the watcher's knowledge of the others.
//
// On success, registered change callbacks are invoked with each item's
// [Snapshot] in URL order.
func (s *Store) PollOnce(ctx context.Context) error {
	s.mu.Lock()
	items := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	s.mu.Unlock()

	outcomes := make(chan refreshOutcome, len(items))
	jobs := make(chan *Item)

	workers := s.maxConcurrency
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				snap, err := item.Refresh(ctx, s.client)
				outcomes <- refreshOutcome{snap: snap, err: err}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	var firstErr error
	snaps := make([]Snapshot, 0, len(items))
	for outcome := range outcomes {
		if outcome.err != nil {
			if firstErr == nil {
				firstErr = outcome.err
			}
			continue
		}
		snaps = append(snaps, outcome.snap)
	}
	if firstErr != nil {
		return firstErr
	}

	newCount, totalCount := 0, 0
	for _, snap := range snaps {
		if snap.Changed {
			newCount++
		}
		if snap.State == StockIn {
			totalCount++
		}
	}
	if s.debug {
		newCount, totalCount = len(snaps), len(snaps)
	}

	s.mu.Lock()
	s.newInStock = newCount
	s.totalInStock = totalCount
	s.mu.Unlock()

	if len(s.callbacks) > 0 {
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].URL < snaps[j].URL })
		for _, snap := range snaps {
			for _, cb := range s.callbacks {
				s.invokeCallbackSafe(cb, snap)
			}
		}
	}

	return nil
}

// Run polls all tracked items at the configured interval, sending a
// notification whenever a cycle finds newly in-stock items.
//
// Run blocks until the context is cancelled (returning nil) or a poll
// cycle fails (returning that cycle's error). Per-item fetch failures are
// deliberately loud: the loop terminates rather than silently skipping a
// broken URL forever.
//
// Notification failures, by contrast, are best-effort — logged and
// dropped, never fatal.
func (s *Store) Run(ctx context.Context) error {
	s.logger.Info("watch started",
		"items", s.Len(),
		"interval", s.interval.String(),
	)

	if ctx.Err() != nil {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.logger.Info("checking stock")
		if err := s.PollOnce(ctx); err != nil {
			// context cancellation surfaces as fetch errors; treat
			// shutdown mid-cycle as graceful
			if ctx.Err() != nil {
				s.logger.Info("watch stopped")
				return nil
			}
			return fmt.Errorf("poll cycle failed: %w", err)
		}

		newCount, totalCount := s.NewInStock(), s.TotalInStock()
		if newCount > 0 {
			s.logger.Info("new items available",
				"new", newCount,
				"total", totalCount,
			)
			s.sendNotification(ctx, newCount, totalCount)
		} else {
			s.logger.Info("stock unchanged", "total", totalCount)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// sendNotification composes and sends the stock-change email.
// Delivery is best-effort; a failed send is logged and dropped.
func (s *Store) sendNotification(ctx context.Context, newCount, totalCount int) {
	if s.notifier == nil {
		s.logger.Warn("no notifier configured, skipping notification")
		return
	}

	subject := subjectLine(newCount, totalCount)
	if s.notifier.Notify(ctx, subject, s.notificationBody()) {
		s.logger.Info("recipient notified of stock changes")
	} else {
		s.logger.Warn("notification not delivered", "subject", subject)
	}
}

// subjectLine formats the notification subject,
// e.g. "(2 new, 5 total) items in stock".
func subjectLine(newCount, totalCount int) string {
	return fmt.Sprintf("(%d new, %d total) items in stock", newCount, totalCount)
}

// notificationBody lists each changed item — or every item in debug
// mode — one block per item in URL order.
func (s *Store) notificationBody() string {
	s.mu.Lock()
	reported := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		if s.debug || item.Changed() {
			reported = append(reported, item)
		}
	}
	s.mu.Unlock()

	sort.Slice(reported, func(i, j int) bool { return reported[i].url < reported[j].url })

	lines := make([]string, len(reported))
	for i, item := range reported {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}

// String renders the current state of every tracked item, one block per
// item in URL order.
func (s *Store) String() string {
	s.mu.Lock()
	items := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].url < items[j].url })

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}

// invokeCallbackSafe calls a change callback with panic recovery.
// If the callback panics, the full stack trace is logged with a
// correlation ID and the poll loop continues.
func (s *Store) invokeCallbackSafe(cb func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("change callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"url", snap.URL,
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(snap)
}

// validateURL checks that a tracked URL is an absolute http(s) URL.
func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL %q must have an http:// or https:// scheme", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
