package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddStories inserts stories, deduplicating on (feed_id, guid).
// Returns the number actually added.
func (s *Store) AddStories(ctx context.Context, stories []Story) (int, error) {
	if len(stories) == 0 {
		return 0, nil
	}

	added := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, st := range stories {
			var publishedAt any
			if st.PublishedAt != nil {
				publishedAt = st.PublishedAt.UTC()
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO stories
					(feed_id, source_id, url, guid, title, published_at, fetched_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (feed_id, guid) DO NOTHING
			`, st.FeedID, st.SourceID, st.URL, st.GUID, st.Title,
				publishedAt, st.FetchedAt.UTC())
			if err != nil {
				return fmt.Errorf("store: add story: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("store: add story rows: %w", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// StoriesFetchedByDay returns story counts grouped by fetch date for
// the last `days` days, newest first.
func (s *Store) StoriesFetchedByDay(ctx context.Context, now time.Time, days int) ([]DayCount, error) {
	return s.storiesByDay(ctx, "fetched_at", now, days)
}

// StoriesPublishedByDay returns story counts grouped by publication
// date for the last `days` days, newest first.
func (s *Store) StoriesPublishedByDay(ctx context.Context, now time.Time, days int) ([]DayCount, error) {
	return s.storiesByDay(ctx, "published_at", now, days)
}

func (s *Store) storiesByDay(ctx context.Context, column string, now time.Time, days int) ([]DayCount, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	earliest := today.AddDate(0, 0, -days)
	latest := today.AddDate(0, 0, 1)

	// column is one of two literals above, never caller input
	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', `+column+`) AS day, COUNT(id)
		FROM stories
		WHERE `+column+` >= ? AND `+column+` < ?
		GROUP BY day
		ORDER BY day DESC
	`, earliest, latest)
	if err != nil {
		return nil, fmt.Errorf("store: stories by day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		dc := DayCount{Type: "stories"}
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("store: scan day count: %w", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return out, nil
}

// SourceSplit is the by-source story volume with the observed time
// span, in days, of the underlying data.
type SourceSplit struct {
	Days    float64       `json:"days"`
	Sources []SourceCount `json:"sources"`
}

// StoriesBySource returns per-source story counts and the span between
// the oldest and newest fetch. The caller deals with scaling.
func (s *Store) StoriesBySource(ctx context.Context) (SourceSplit, error) {
	var split SourceSplit

	var span sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT julianday(MAX(fetched_at)) - julianday(MIN(fetched_at)) FROM stories`).
		Scan(&span)
	if err != nil {
		return SourceSplit{}, fmt.Errorf("store: stories span: %w", err)
	}
	split.Days = span.Float64

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, COUNT(id)
		FROM stories
		GROUP BY source_id
		ORDER BY source_id
	`)
	if err != nil {
		return SourceSplit{}, fmt.Errorf("store: stories by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.SourceID, &sc.Count); err != nil {
			return SourceSplit{}, fmt.Errorf("store: scan source count: %w", err)
		}
		split.Sources = append(split.Sources, sc)
	}
	if err := rows.Err(); err != nil {
		return SourceSplit{}, fmt.Errorf("store: rows: %w", err)
	}
	return split, nil
}
