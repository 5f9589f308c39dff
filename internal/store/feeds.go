package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// AddFeed inserts a feed and returns its id.
func (s *Store) AddFeed(ctx context.Context, url string, sourceID int64, updateMinutes *int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (url, source_id, update_minutes)
		VALUES (?, ?, ?)
	`, url, sourceID, updateMinutes)
	if err != nil {
		return 0, fmt.Errorf("store: add feed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: add feed id: %w", err)
	}
	return id, nil
}

// GetFeed loads one feed row.
func (s *Store) GetFeed(ctx context.Context, id int64) (Feed, error) {
	var f Feed
	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, source_id, active, system_enabled, queued,
		       update_minutes, next_fetch_attempt, last_fetch_attempt,
		       last_fetch_success, failures
		FROM feeds WHERE id = ?
	`, id).Scan(&f.ID, &f.URL, &f.SourceID, &f.Active, &f.SystemEnabled,
		&f.Queued, &f.UpdateMinutes, &f.NextFetchAttempt,
		&f.LastFetchAttempt, &f.LastFetchSuccess, &f.Failures)
	if err != nil {
		return Feed{}, fmt.Errorf("store: get feed %d: %w", id, err)
	}
	return f, nil
}

// readyWhere matches active, enabled, unqueued feeds that have never
// been checked or are past due.
const readyWhere = `
	active = 1 AND system_enabled = 1 AND queued = 0
	AND (next_fetch_attempt IS NULL OR next_fetch_attempt <= ?)
`

// ReadyFeedIDs returns up to limit feed ids ready to be fetched,
// never-checked feeds first, then oldest due date first.
func (s *Store) ReadyFeedIDs(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM feeds
		WHERE `+readyWhere+`
		ORDER BY next_fetch_attempt IS NOT NULL,
		         next_fetch_attempt ASC,
		         id DESC
		LIMIT ?
	`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("store: ready feeds: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ReadyFeeds returns up to limit feeds ready to be fetched, in the
// same order as ReadyFeedIDs, with the fields fetch work needs.
func (s *Store) ReadyFeeds(ctx context.Context, now time.Time, limit int) ([]Feed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, source_id, failures FROM feeds
		WHERE `+readyWhere+`
		ORDER BY next_fetch_attempt IS NOT NULL,
		         next_fetch_attempt ASC,
		         id DESC
		LIMIT ?
	`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("store: ready feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.SourceID, &f.Failures); err != nil {
			return nil, fmt.Errorf("store: scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return feeds, nil
}

// FilterReady narrows explicit feed ids down to those currently ready.
func (s *Store) FilterReady(ctx context.Context, ids []int64, now time.Time) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := []any{now.UTC()}
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM feeds
		WHERE `+readyWhere+` AND id IN (`+placeholders(len(ids))+`)
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: filter ready: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// MarkQueued flags feeds as queued and records a QUEUED fetch event
// per feed, all in one transaction so workers never see a half-queued
// batch. Returns the number of feeds actually transitioned.
func (s *Store) MarkQueued(ctx context.Context, ids []int64, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	marked := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		args := []any{now.UTC()}
		for _, id := range ids {
			args = append(args, id)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE feeds
			SET queued = 1, last_fetch_attempt = ?
			WHERE queued = 0 AND id IN (`+placeholders(len(ids))+`)
		`, args...)
		if err != nil {
			return fmt.Errorf("store: mark queued: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: mark queued rows: %w", err)
		}
		marked = int(n)

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO fetch_events (feed_id, event, note, created_at)
				VALUES (?, ?, '', ?)
			`, id, EventQueued, now.UTC()); err != nil {
				return fmt.Errorf("store: queued event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// ClearQueued resets all queued flags, e.g. after a crash left feeds
// marked as in-flight.
func (s *Store) ClearQueued(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feeds SET queued = 0 WHERE queued = 1`)
	if err != nil {
		return 0, fmt.Errorf("store: clear queued: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: clear queued rows: %w", err)
	}
	return n, nil
}

// CountActive returns the number of active, enabled feeds.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	return s.countWhere(ctx, `active = 1 AND system_enabled = 1`)
}

// CountQueued returns the number of feeds currently marked queued.
func (s *Store) CountQueued(ctx context.Context) (int64, error) {
	return s.countWhere(ctx, `queued = 1`)
}

// CountReady returns the number of feeds ready to fetch.
func (s *Store) CountReady(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feeds WHERE `+readyWhere, now.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count ready: %w", err)
	}
	return n, nil
}

// FetchesPerMinute returns the average expected fetch rate over all
// active feeds, each contributing 1/interval where the interval is its
// update period clamped below by minimumMins, defaulting to
// defaultMins when unset. Kept in sync with the update policy in the
// fetch task.
func (s *Store) FetchesPerMinute(ctx context.Context, defaultMins, minimumMins int64) (float64, error) {
	var rate sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(1.0 / MAX(COALESCE(update_minutes, ?), ?))
		FROM feeds
		WHERE active = 1 AND system_enabled = 1
	`, defaultMins, minimumMins).Scan(&rate)
	if err != nil {
		return 0, fmt.Errorf("store: fetches per minute: %w", err)
	}
	return rate.Float64, nil
}

// SaveFetchResult writes one fetch outcome: clears the queued flag,
// advances next_fetch_attempt, maintains the failure counter, and
// records a fetch event.
func (s *Store) SaveFetchResult(ctx context.Context, res FetchResult, now time.Time) error {
	event := EventFetchFailed
	if res.Success {
		event = EventFetchSucceeded
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if res.Success {
			_, err = tx.ExecContext(ctx, `
				UPDATE feeds
				SET queued = 0, failures = 0,
				    last_fetch_success = ?, next_fetch_attempt = ?
				WHERE id = ?
			`, now.UTC(), res.NextAttempt.UTC(), res.FeedID)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE feeds
				SET queued = 0, failures = failures + 1,
				    next_fetch_attempt = ?
				WHERE id = ?
			`, res.NextAttempt.UTC(), res.FeedID)
		}
		if err != nil {
			return fmt.Errorf("store: save fetch result: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fetch_events (feed_id, event, note, created_at)
			VALUES (?, ?, ?, ?)
		`, res.FeedID, event, res.Note, now.UTC()); err != nil {
			return fmt.Errorf("store: fetch event: %w", err)
		}
		return nil
	})
}

func (s *Store) countWhere(ctx context.Context, where string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feeds WHERE `+where).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count feeds: %w", err)
	}
	return n, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return ids, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
