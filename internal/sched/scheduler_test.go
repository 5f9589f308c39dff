package sched

import (
	"context"
	"testing"
	"time"

	"github.com/philbudne/rss-fetcher/internal/store"
)

type fakeLister struct {
	feeds   []store.Feed
	refills int
}

func (f *fakeLister) ReadyFeeds(ctx context.Context, now time.Time, limit int) ([]store.Feed, error) {
	f.refills++
	if len(f.feeds) > limit {
		return f.feeds[:limit], nil
	}
	return f.feeds, nil
}

func testScheduler(lister *fakeLister, gap time.Duration) (*Scheduler, *time.Time) {
	cfg := DefaultConfig()
	cfg.SourceGap = gap
	s := New(cfg, lister)
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestFindWorkIssuesAndTracksInFlight(t *testing.T) {
	lister := &fakeLister{feeds: []store.Feed{
		{ID: 1, SourceID: 10, URL: "https://a.example/rss"},
		{ID: 2, SourceID: 20, URL: "https://b.example/rss"},
	}}
	s, _ := testScheduler(lister, 0)

	ctx := context.Background()
	first, err := s.FindWork(ctx)
	if err != nil {
		t.Fatalf("find work: %v", err)
	}
	if first == nil || first.FeedID != 1 {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if s.InFlight() != 1 {
		t.Fatalf("expected one in flight, got %d", s.InFlight())
	}

	second, err := s.FindWork(ctx)
	if err != nil {
		t.Fatalf("find work: %v", err)
	}
	if second == nil || second.FeedID != 2 {
		t.Fatalf("unexpected second item: %+v", second)
	}

	s.Completed(*first)
	s.Completed(*second)
	if s.InFlight() != 0 {
		t.Fatalf("expected drained in-flight set, got %d", s.InFlight())
	}
}

func TestFindWorkPacesSameSource(t *testing.T) {
	lister := &fakeLister{feeds: []store.Feed{
		{ID: 1, SourceID: 10, URL: "https://a.example/rss"},
		{ID: 2, SourceID: 10, URL: "https://a.example/other.rss"},
	}}
	s, now := testScheduler(lister, 5*time.Second)
	ctx := context.Background()

	first, err := s.FindWork(ctx)
	if err != nil || first == nil {
		t.Fatalf("find work: item=%v err=%v", first, err)
	}

	// same source inside the gap: nothing issuable
	blocked, err := s.FindWork(ctx)
	if err != nil {
		t.Fatalf("find work: %v", err)
	}
	if blocked != nil {
		t.Fatalf("expected source pacing to block, got %+v", blocked)
	}

	*now = now.Add(6 * time.Second)
	unblocked, err := s.FindWork(ctx)
	if err != nil {
		t.Fatalf("find work: %v", err)
	}
	if unblocked == nil || unblocked.FeedID != 2 {
		t.Fatalf("expected second feed after gap, got %+v", unblocked)
	}
}

func TestRefillSkipsInFlightFeeds(t *testing.T) {
	lister := &fakeLister{feeds: []store.Feed{
		{ID: 1, SourceID: 10, URL: "https://a.example/rss"},
	}}
	s, now := testScheduler(lister, 0)
	ctx := context.Background()

	item, err := s.FindWork(ctx)
	if err != nil || item == nil {
		t.Fatalf("find work: item=%v err=%v", item, err)
	}

	// list goes stale while feed 1 is still in flight
	*now = now.Add(2 * time.Minute)
	again, err := s.FindWork(ctx)
	if err != nil {
		t.Fatalf("find work: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no duplicate issue of in-flight feed, got %+v", again)
	}
	if lister.refills < 2 {
		t.Fatalf("expected a stale-list refill, got %d", lister.refills)
	}
}

func TestPinnedRunFinishes(t *testing.T) {
	s, _ := testScheduler(&fakeLister{}, 0)
	s.Pin([]Item{{FeedID: 7, SourceID: 1, URL: "https://a.example/rss"}})

	if !s.HaveWork() {
		t.Fatalf("expected pinned work available")
	}

	item, err := s.FindWork(context.Background())
	if err != nil || item == nil {
		t.Fatalf("find work: item=%v err=%v", item, err)
	}
	if !s.HaveWork() {
		t.Fatalf("in-flight item still counts as work")
	}

	s.Completed(*item)
	if s.HaveWork() {
		t.Fatalf("expected pinned run to finish")
	}
}
