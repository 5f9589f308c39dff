// Package tasks holds the per-feed fetch work executed by workers:
// pull the document over HTTP, extract entries, persist new stories,
// and write back the fetch outcome with the next attempt time.
package tasks

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/philbudne/rss-fetcher/internal/observability"
	"github.com/philbudne/rss-fetcher/internal/sched"
	"github.com/philbudne/rss-fetcher/internal/stats"
	"github.com/philbudne/rss-fetcher/internal/store"
)

// FeedStore is what a fetch needs from the database. Implemented by
// *store.Store.
type FeedStore interface {
	GetFeed(ctx context.Context, id int64) (store.Feed, error)
	AddStories(ctx context.Context, stories []store.Story) (int, error)
	SaveFetchResult(ctx context.Context, res store.FetchResult, now time.Time) error
}

// Config tunes feed fetching.
type Config struct {
	// UserAgent is sent on every request. Feed operators rate-limit
	// and block on this string, keep it honest.
	UserAgent string
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration
	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes int64
	// DefaultIntervalMins applies when a feed has no update interval.
	DefaultIntervalMins int64
	// MinimumIntervalMins is the floor for any feed's interval.
	MinimumIntervalMins int64
}

func DefaultConfig() Config {
	return Config{
		UserAgent:           "rss-fetcher/1.0 (+https://mediacloud.org)",
		Timeout:             30 * time.Second,
		MaxBodyBytes:        10 << 20,
		DefaultIntervalMins: 12 * 60,
		MinimumIntervalMins: 15,
	}
}

// Fetcher runs individual feed fetches.
type Fetcher struct {
	cfg     Config
	db      FeedStore
	client  *http.Client
	backoff sched.BackoffConfig
	rng     *rand.Rand
	stats   *stats.Stats
	logger  zerolog.Logger
	now     func() time.Time
}

func New(cfg Config, db FeedStore, st *stats.Stats, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		db:  db,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		backoff: sched.DefaultBackoff(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		stats:   st,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchFeed fetches one feed and writes the outcome back to the
// store. The returned error reflects the fetch itself; a failed fetch
// with a successfully recorded result still returns the fetch error
// so callers can count it.
func (f *Fetcher) FetchFeed(ctx context.Context, item sched.Item) error {
	started := f.now()

	entries, fetchErr := f.fetch(ctx, item.URL)
	elapsed := f.now().Sub(started)

	if fetchErr != nil {
		observability.RecordFeedFetch("failed", elapsed)
		f.stats.Incr("fetch_failed", 1)
		f.logger.Warn().
			Int64("feed", item.FeedID).
			Str("url", item.URL).
			Err(fetchErr).
			Msg("feed fetch failed")
		if err := f.saveFailure(ctx, item, fetchErr); err != nil {
			return err
		}
		return fetchErr
	}

	added, err := f.saveStories(ctx, item, entries)
	if err != nil {
		return err
	}

	observability.RecordFeedFetch("succeeded", elapsed)
	observability.RecordStoriesAdded(added)
	f.stats.Incr("fetch_ok", 1)
	f.stats.Incr("stories_added", added)
	f.logger.Info().
		Int64("feed", item.FeedID).
		Int("entries", len(entries)).
		Int("added", added).
		Dur("elapsed", elapsed).
		Msg("feed fetched")

	return f.saveSuccess(ctx, item, added)
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	entries, err := ParseFeed(body)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (f *Fetcher) saveStories(ctx context.Context, item sched.Item, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	now := f.now().UTC()
	stories := make([]store.Story, 0, len(entries))
	for _, e := range entries {
		stories = append(stories, store.Story{
			FeedID:      item.FeedID,
			SourceID:    item.SourceID,
			URL:         e.Link,
			GUID:        e.GUID,
			Title:       e.Title,
			PublishedAt: e.Published,
			FetchedAt:   now,
		})
	}
	added, err := f.db.AddStories(ctx, stories)
	if err != nil {
		return 0, fmt.Errorf("save stories: %w", err)
	}
	return added, nil
}

func (f *Fetcher) saveSuccess(ctx context.Context, item sched.Item, added int) error {
	now := f.now().UTC()
	return f.db.SaveFetchResult(ctx, store.FetchResult{
		FeedID:      item.FeedID,
		Success:     true,
		Note:        fmt.Sprintf("%d added", added),
		NextAttempt: now.Add(f.updateInterval(ctx, item.FeedID)),
	}, now)
}

func (f *Fetcher) saveFailure(ctx context.Context, item sched.Item, cause error) error {
	now := f.now().UTC()
	delay := sched.NextAttemptDelay(f.backoff, int(item.Failures)+1, f.rng)
	err := f.db.SaveFetchResult(ctx, store.FetchResult{
		FeedID:      item.FeedID,
		Success:     false,
		Note:        cause.Error(),
		NextAttempt: now.Add(delay),
	}, now)
	if err != nil {
		return fmt.Errorf("save failure: %w", err)
	}
	return nil
}

// updateInterval reads the feed's own interval, clamped to the
// configured minimum. A read error falls back to the default so a
// successful fetch is never lost over it.
func (f *Fetcher) updateInterval(ctx context.Context, feedID int64) time.Duration {
	mins := f.cfg.DefaultIntervalMins
	feed, err := f.db.GetFeed(ctx, feedID)
	if err == nil && feed.UpdateMinutes != nil {
		mins = *feed.UpdateMinutes
	}
	if mins < f.cfg.MinimumIntervalMins {
		mins = f.cfg.MinimumIntervalMins
	}
	return time.Duration(mins) * time.Minute
}
