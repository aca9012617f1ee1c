// Package scheduler owns one poll timer per running subscription and runs
// the fetch-diff-update-dispatch sequence on every tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"feed_notifier/internal/diff"
	"feed_notifier/internal/domain"
)

const defaultFetchTimeout = 30 * time.Second

// Config holds scheduler configuration.
type Config struct {
	// FetchTimeout bounds a single fetch, both at subscribe time and on
	// every tick.
	FetchTimeout time.Duration
}

// SubscribeRequest is the payload of a new subscription.
type SubscribeRequest struct {
	URL      string
	Interval int64 // milliseconds between polls
	Title    string
	ID       int64 // 0 means derive one from the current timestamp
}

// feedState is the runtime side of one subscription: the timer handle and
// the in-flight guard. It is never serialized; the Notifier record only
// carries Status.
type feedState struct {
	cancel   context.CancelFunc // nil while paused
	gen      uint64             // bumped on pause/unsubscribe so late fetches get discarded
	fetching bool
}

// Scheduler coordinates the per-feed timers. Each armed feed has its own
// goroutine with its own ticker; ticks of one feed are strictly
// sequential, ticks of different feeds are independent.
type Scheduler struct {
	fetcher      Fetcher
	store        NotifierStore
	dispatcher   Dispatcher
	logger       *slog.Logger
	fetchTimeout time.Duration

	mu    sync.Mutex
	feeds map[int64]*feedState
}

func New(fetcher Fetcher, store NotifierStore, dispatcher Dispatcher, logger *slog.Logger, cfg Config) *Scheduler {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Scheduler{
		fetcher:      fetcher,
		store:        store,
		dispatcher:   dispatcher,
		logger:       logger.With("component", "scheduler"),
		fetchTimeout: timeout,
		feeds:        make(map[int64]*feedState),
	}
}

// Subscribe performs one synchronous fetch to validate and seed the feed.
// On success the Notifier is stored with status running and its timer is
// armed; the seeding items never reach the dispatcher. On failure no state
// is created. Subscribing an id that already exists replaces the existing
// subscription, which lets persisted feeds be re-armed by their callers.
func (s *Scheduler) Subscribe(ctx context.Context, req SubscribeRequest) (*domain.Notifier, error) {
	if req.Interval <= 0 {
		return nil, domain.ErrInvalidInterval
	}
	if u, err := url.ParseRequestURI(req.URL); err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, req.URL)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	doc, err := s.fetcher.Fetch(fetchCtx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	id := req.ID
	if id == 0 {
		id = time.Now().UnixMilli()
	}

	n := &domain.Notifier{
		ID:          id,
		RSS:         req.URL,
		Interval:    req.Interval,
		Status:      domain.StatusRunning,
		LastUpdated: time.Now().UTC(),
	}
	applyDocument(n, doc)
	if req.Title != "" {
		n.Title = req.Title
	}

	if err := s.store.Upsert(ctx, n); err != nil {
		return nil, fmt.Errorf("store notifier: %w", err)
	}

	s.mu.Lock()
	st, ok := s.feeds[id]
	if !ok {
		st = &feedState{}
		s.feeds[id] = st
	}
	s.disarmLocked(st)
	s.armLocked(id, st, n.IntervalDuration())
	s.mu.Unlock()

	s.logger.Info("subscribed",
		"feed_id", id,
		"url", req.URL,
		"interval_ms", req.Interval,
		"items", len(n.Items),
	)

	return n, nil
}

// Pause cancels the feed's next scheduled tick and marks it paused.
// Pausing an already-paused feed is a no-op. A fetch that is already in
// flight completes but its result is discarded.
func (s *Scheduler) Pause(ctx context.Context, id int64) error {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if st, ok := s.feeds[id]; ok {
		s.disarmLocked(st)
	}
	s.mu.Unlock()

	if n.Status == domain.StatusPaused {
		return nil
	}
	n.Status = domain.StatusPaused
	if err := s.store.Upsert(ctx, n); err != nil {
		return fmt.Errorf("store notifier: %w", err)
	}

	s.logger.Info("paused", "feed_id", id)
	return nil
}

// Resume arms a new timer with the feed's current interval; the first tick
// fires one full interval from now. Resuming a running feed is a no-op.
func (s *Scheduler) Resume(ctx context.Context, id int64) error {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	st, ok := s.feeds[id]
	if !ok {
		st = &feedState{}
		s.feeds[id] = st
	}
	armed := st.cancel != nil
	if !armed {
		s.armLocked(id, st, n.IntervalDuration())
	}
	s.mu.Unlock()

	if armed && n.Status == domain.StatusRunning {
		return nil
	}

	n.Status = domain.StatusRunning
	if err := s.store.Upsert(ctx, n); err != nil {
		return fmt.Errorf("store notifier: %w", err)
	}

	s.logger.Info("resumed", "feed_id", id, "interval_ms", n.Interval)
	return nil
}

// UpdateInterval stores the new cadence and, if the feed is running,
// re-arms its timer so the next tick uses the new value. A tick already in
// flight is not affected.
func (s *Scheduler) UpdateInterval(ctx context.Context, id int64, interval int64) error {
	if interval <= 0 {
		return domain.ErrInvalidInterval
	}

	n, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	n.Interval = interval
	if err := s.store.Upsert(ctx, n); err != nil {
		return fmt.Errorf("store notifier: %w", err)
	}

	s.mu.Lock()
	if st, ok := s.feeds[id]; ok && st.cancel != nil {
		// Swap the timer without bumping the generation: an in-flight
		// fetch keeps its result.
		st.cancel()
		st.cancel = nil
		s.armLocked(id, st, n.IntervalDuration())
	}
	s.mu.Unlock()

	s.logger.Info("interval updated", "feed_id", id, "interval_ms", interval)
	return nil
}

// Unsubscribe cancels any timer and removes the record permanently. An
// in-flight fetch completes but writes nothing and dispatches nothing.
func (s *Scheduler) Unsubscribe(ctx context.Context, id int64) error {
	s.mu.Lock()
	if st, ok := s.feeds[id]; ok {
		s.disarmLocked(st)
		delete(s.feeds, id)
	}
	s.mu.Unlock()

	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}

	s.logger.Info("unsubscribed", "feed_id", id)
	return nil
}

// Restore registers every stored subscription and re-arms timers for the
// running ones. Called once at startup when a persistent store is in use.
func (s *Scheduler) Restore(ctx context.Context) error {
	notifiers, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list notifiers: %w", err)
	}

	s.mu.Lock()
	for i := range notifiers {
		n := &notifiers[i]
		st, ok := s.feeds[n.ID]
		if !ok {
			st = &feedState{}
			s.feeds[n.ID] = st
		}
		if n.Status == domain.StatusRunning && st.cancel == nil {
			s.armLocked(n.ID, st, n.IntervalDuration())
		}
	}
	s.mu.Unlock()

	s.logger.Info("restored subscriptions", "count", len(notifiers))
	return nil
}

// Close cancels every timer. In-flight fetches complete and are discarded.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.feeds {
		s.disarmLocked(st)
	}
	s.logger.Info("scheduler stopped")
}

// armLocked starts the poll goroutine for id. Caller holds s.mu and
// guarantees st is currently disarmed.
func (s *Scheduler) armLocked(id int64, st *feedState, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	go s.poll(ctx, id, interval)
}

// disarmLocked cancels the timer if armed and invalidates any fetch still
// in flight. Caller holds s.mu.
func (s *Scheduler) disarmLocked(st *feedState) {
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.gen++
}

func (s *Scheduler) poll(ctx context.Context, id int64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.tick(id)
		}
	}
}

// tick runs one fetch-diff-update-dispatch sequence for the feed. Fetch
// failures leave persisted state untouched; the next tick retries on the
// existing cadence.
func (s *Scheduler) tick(id int64) {
	s.mu.Lock()
	st, ok := s.feeds[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	if st.fetching {
		s.mu.Unlock()
		s.logger.Debug("previous fetch still in flight, skipping tick", "feed_id", id)
		return
	}
	st.fetching = true
	gen := st.gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if st, ok := s.feeds[id]; ok {
			st.fetching = false
		}
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	// Snapshot taken at the moment the fetch is initiated; the diff below
	// runs against it even if the record changes while the fetch is out.
	before, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Warn("read notifier failed", "feed_id", id, "error", err)
		return
	}

	doc, err := s.fetcher.Fetch(ctx, before.RSS)
	if err != nil {
		s.logger.Warn("fetch failed, retrying on next tick",
			"feed_id", id,
			"url", before.RSS,
			"error", err,
		)
		return
	}

	newItems := diff.NewItems(before.Items, doc.Items)

	// Re-read so interval or title changes made during the fetch are not
	// lost by the wholesale metadata replace.
	current, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("read notifier failed", "feed_id", id, "error", err)
		}
		return
	}

	// The feed may have been paused or unsubscribed at any point up to
	// here, including while the re-read above was in progress. Checked
	// immediately before the store write; a stale tick writes nothing
	// and dispatches nothing.
	s.mu.Lock()
	st, ok = s.feeds[id]
	stale := !ok || st.gen != gen
	s.mu.Unlock()
	if stale {
		s.logger.Debug("discarding stale fetch result", "feed_id", id)
		return
	}

	applyDocument(current, doc)
	current.LastUpdated = time.Now().UTC()

	if err := s.store.Upsert(ctx, current); err != nil {
		s.logger.Error("store update failed", "feed_id", id, "error", err)
		return
	}

	if len(newItems) > 0 {
		s.logger.Info("new items", "feed_id", id, "count", len(newItems))
	}

	if s.dispatcher == nil {
		return
	}
	for _, item := range newItems {
		if err := s.dispatcher.Notify(ctx, current, item); err != nil {
			s.logger.Warn("dispatch failed",
				"feed_id", id,
				"identity", item.Identity(),
				"error", err,
			)
		}
	}
}

// applyDocument replaces the feed-derived metadata and the item snapshot
// wholesale, leaving id, rss, interval and status untouched.
func applyDocument(n *domain.Notifier, doc *domain.Feed) {
	n.Title = doc.Title
	n.Description = doc.Description
	n.Link = doc.Link
	n.Image = doc.Image
	n.Language = doc.Language
	n.Copyright = doc.Copyright
	n.Generator = doc.Generator
	n.Docs = doc.Docs
	n.ManagingEditor = doc.ManagingEditor
	n.PubDate = doc.PubDate
	n.Items = doc.Items
}
