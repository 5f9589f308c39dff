// Package sched decides which feed to fetch next. It keeps a ready
// list refreshed from the database, tracks in-flight feeds, and paces
// issues so one source never sees back-to-back requests.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/philbudne/rss-fetcher/internal/store"
)

// Item is one unit of fetch work handed to a worker.
type Item struct {
	FeedID   int64
	SourceID int64
	URL      string
	Failures int64
}

// FeedLister supplies candidate feeds. Implemented by *store.Store.
type FeedLister interface {
	ReadyFeeds(ctx context.Context, now time.Time, limit int) ([]store.Feed, error)
}

// Config tunes the scheduler.
type Config struct {
	// RefillLimit bounds one ready-list refresh.
	RefillLimit int
	// ListTTL is how long a ready list stays fresh before the next
	// FindWork refreshes it. New and triggered feeds are picked up at
	// this granularity.
	ListTTL time.Duration
	// SourceGap is the minimum spacing between issues for feeds of
	// the same source.
	SourceGap time.Duration
}

func DefaultConfig() Config {
	return Config{
		RefillLimit: 1000,
		ListTTL:     time.Minute,
		SourceGap:   5 * time.Second,
	}
}

// Scheduler hands out fetch work. Safe for use from one dispatch
// goroutine with completions arriving from workers.
type Scheduler struct {
	cfg    Config
	lister FeedLister
	now    func() time.Time

	mu        sync.Mutex
	ready     []Item
	refreshed time.Time
	issued    map[int64]struct{}   // feed ids in flight
	lastIssue map[int64]time.Time  // per source
	pinned    bool                 // explicit feed list, no refills
}

func New(cfg Config, lister FeedLister) *Scheduler {
	if cfg.RefillLimit <= 0 {
		cfg.RefillLimit = DefaultConfig().RefillLimit
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = DefaultConfig().ListTTL
	}
	return &Scheduler{
		cfg:       cfg,
		lister:    lister,
		now:       time.Now,
		issued:    make(map[int64]struct{}),
		lastIssue: make(map[int64]time.Time),
	}
}

// Pin replaces the work stream with an explicit item list, for runs
// driven by feed ids on the command line. No refills happen and
// HaveWork goes false once everything has completed.
func (s *Scheduler) Pin(items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned = true
	s.ready = append([]Item(nil), items...)
}

// FindWork returns the next issuable item, or nil when nothing is
// currently issuable. The returned item is marked in flight until
// Completed is called for it.
func (s *Scheduler) FindWork(ctx context.Context) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pinned && s.stale() {
		if err := s.refillLocked(ctx); err != nil {
			return nil, err
		}
	}

	now := s.now()
	for i, item := range s.ready {
		if _, inflight := s.issued[item.FeedID]; inflight {
			continue
		}
		if s.cfg.SourceGap > 0 {
			if last, ok := s.lastIssue[item.SourceID]; ok &&
				now.Sub(last) < s.cfg.SourceGap {
				continue
			}
		}

		s.ready = append(s.ready[:i], s.ready[i+1:]...)
		s.issued[item.FeedID] = struct{}{}
		s.lastIssue[item.SourceID] = now
		picked := item
		return &picked, nil
	}
	return nil, nil
}

// Completed releases an in-flight item.
func (s *Scheduler) Completed(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.issued, item.FeedID)
}

// HaveWork reports whether the scheduler can still produce work. In
// the daemon case the answer is always yes; a pinned run finishes when
// its list is drained and nothing is in flight.
func (s *Scheduler) HaveWork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pinned {
		return true
	}
	return len(s.ready) > 0 || len(s.issued) > 0
}

// InFlight reports the number of issued, uncompleted items.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

func (s *Scheduler) stale() bool {
	return s.now().Sub(s.refreshed) >= s.cfg.ListTTL || len(s.ready) == 0
}

func (s *Scheduler) refillLocked(ctx context.Context) error {
	feeds, err := s.lister.ReadyFeeds(ctx, s.now(), s.cfg.RefillLimit)
	if err != nil {
		return err
	}

	items := make([]Item, 0, len(feeds))
	for _, f := range feeds {
		if _, inflight := s.issued[f.ID]; inflight {
			continue
		}
		items = append(items, Item{
			FeedID:   f.ID,
			SourceID: f.SourceID,
			URL:      f.URL,
			Failures: f.Failures,
		})
	}
	s.ready = items
	s.refreshed = s.now()
	return nil
}
