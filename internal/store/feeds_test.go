package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fetcher.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addFeed(t *testing.T, s *Store, url string, updateMinutes *int64) int64 {
	t.Helper()
	id, err := s.AddFeed(context.Background(), url, 0, updateMinutes)
	require.NoError(t, err)
	return id
}

func minsPtr(m int64) *int64 { return &m }

func TestReadyFeedIDsOrdersNullsFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// due in the past, never checked, due in the future
	past := addFeed(t, s, "https://example.org/a.rss", nil)
	_, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET next_fetch_attempt = ? WHERE id = ?`,
		now.Add(-time.Hour), past)
	require.NoError(t, err)

	fresh := addFeed(t, s, "https://example.org/b.rss", nil)

	future := addFeed(t, s, "https://example.org/c.rss", nil)
	_, err = s.db.ExecContext(ctx,
		`UPDATE feeds SET next_fetch_attempt = ? WHERE id = ?`,
		now.Add(time.Hour), future)
	require.NoError(t, err)

	ids, err := s.ReadyFeedIDs(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{fresh, past}, ids)
}

func TestMarkQueuedIsTransactionalAndIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := addFeed(t, s, "https://example.org/a.rss", nil)
	b := addFeed(t, s, "https://example.org/b.rss", nil)

	marked, err := s.MarkQueued(ctx, []int64{a, b}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	// already queued feeds do not transition again
	marked, err = s.MarkQueued(ctx, []int64{a, b}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	queued, err := s.CountQueued(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, queued)

	feed, err := s.GetFeed(ctx, a)
	require.NoError(t, err)
	assert.True(t, feed.Queued)
	require.NotNil(t, feed.LastFetchAttempt)
}

func TestClearQueuedResetsFlags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := addFeed(t, s, "https://example.org/a.rss", nil)
	_, err := s.MarkQueued(ctx, []int64{a}, time.Now().UTC())
	require.NoError(t, err)

	n, err := s.ClearQueued(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	queued, err := s.CountQueued(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, queued)
}

func TestSaveFetchResultSuccessResetsFailures(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id := addFeed(t, s, "https://example.org/a.rss", nil)
	_, err := s.MarkQueued(ctx, []int64{id}, now)
	require.NoError(t, err)

	err = s.SaveFetchResult(ctx, FetchResult{
		FeedID:      id,
		Success:     false,
		Note:        "connect timeout",
		NextAttempt: now.Add(time.Hour),
	}, now)
	require.NoError(t, err)

	feed, err := s.GetFeed(ctx, id)
	require.NoError(t, err)
	assert.False(t, feed.Queued)
	assert.EqualValues(t, 1, feed.Failures)

	err = s.SaveFetchResult(ctx, FetchResult{
		FeedID:      id,
		Success:     true,
		NextAttempt: now.Add(30 * time.Minute),
	}, now)
	require.NoError(t, err)

	feed, err = s.GetFeed(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, feed.Failures)
	require.NotNil(t, feed.LastFetchSuccess)
	require.NotNil(t, feed.NextFetchAttempt)
}

func TestFetchesPerMinuteClampsIntervals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// unset interval uses the default; tiny interval clamps to minimum
	addFeed(t, s, "https://example.org/a.rss", nil)
	addFeed(t, s, "https://example.org/b.rss", minsPtr(1))
	addFeed(t, s, "https://example.org/c.rss", minsPtr(120))

	rate, err := s.FetchesPerMinute(ctx, 60, 10)
	require.NoError(t, err)
	// 1/60 + 1/10 + 1/120
	assert.InDelta(t, 0.125, rate, 1e-9)
}

func TestFilterReadyDropsUnknownAndQueued(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := addFeed(t, s, "https://example.org/a.rss", nil)
	b := addFeed(t, s, "https://example.org/b.rss", nil)
	_, err := s.MarkQueued(ctx, []int64{b}, now)
	require.NoError(t, err)

	ids, err := s.FilterReady(ctx, []int64{a, b, 9999}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, ids)
}
