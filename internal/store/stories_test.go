package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStoriesDeduplicatesOnGUID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	feed := addFeed(t, s, "https://example.org/a.rss", nil)

	stories := []Story{
		{FeedID: feed, URL: "https://example.org/1", GUID: "guid-1", FetchedAt: now},
		{FeedID: feed, URL: "https://example.org/2", GUID: "guid-2", FetchedAt: now},
	}
	added, err := s.AddStories(ctx, stories)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// re-fetch of the same feed yields the same guids
	added, err = s.AddStories(ctx, stories)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestStoriesFetchedByDayWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	feed := addFeed(t, s, "https://example.org/a.rss", nil)

	_, err := s.AddStories(ctx, []Story{
		{FeedID: feed, URL: "u1", GUID: "g1", FetchedAt: now},
		{FeedID: feed, URL: "u2", GUID: "g2", FetchedAt: now},
		{FeedID: feed, URL: "u3", GUID: "g3", FetchedAt: now.AddDate(0, 0, -1)},
		// outside the window
		{FeedID: feed, URL: "u4", GUID: "g4", FetchedAt: now.AddDate(0, 0, -40)},
	})
	require.NoError(t, err)

	counts, err := s.StoriesFetchedByDay(ctx, now, 30)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, "2026-08-26", counts[0].Date)
	assert.EqualValues(t, 2, counts[0].Count)
	assert.Equal(t, "stories", counts[0].Type)

	assert.Equal(t, "2026-08-25", counts[1].Date)
	assert.EqualValues(t, 1, counts[1].Count)
}

func TestStoriesPublishedByDaySkipsUnpublished(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	published := now.AddDate(0, 0, -2)

	feed := addFeed(t, s, "https://example.org/a.rss", nil)
	_, err := s.AddStories(ctx, []Story{
		{FeedID: feed, URL: "u1", GUID: "g1", PublishedAt: &published, FetchedAt: now},
		{FeedID: feed, URL: "u2", GUID: "g2", FetchedAt: now}, // no pub date
	})
	require.NoError(t, err)

	counts, err := s.StoriesPublishedByDay(ctx, now, 30)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "2026-08-24", counts[0].Date)
	assert.EqualValues(t, 1, counts[0].Count)
}

func TestStoriesBySourceSpanAndCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	feed := addFeed(t, s, "https://example.org/a.rss", nil)
	_, err := s.AddStories(ctx, []Story{
		{FeedID: feed, SourceID: 1, URL: "u1", GUID: "g1", FetchedAt: now.AddDate(0, 0, -2)},
		{FeedID: feed, SourceID: 1, URL: "u2", GUID: "g2", FetchedAt: now},
		{FeedID: feed, SourceID: 2, URL: "u3", GUID: "g3", FetchedAt: now},
	})
	require.NoError(t, err)

	split, err := s.StoriesBySource(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, split.Days, 1e-9)
	require.Len(t, split.Sources, 2)
	assert.EqualValues(t, 1, split.Sources[0].SourceID)
	assert.EqualValues(t, 2, split.Sources[0].Count)
	assert.EqualValues(t, 2, split.Sources[1].SourceID)
	assert.EqualValues(t, 1, split.Sources[1].Count)
}

func TestStoriesBySourceEmpty(t *testing.T) {
	s := openTestStore(t)

	split, err := s.StoriesBySource(context.Background())
	require.NoError(t, err)
	assert.Zero(t, split.Days)
	assert.Empty(t, split.Sources)
}
