package store

import "time"

// Feed is one RSS feed row.
type Feed struct {
	ID               int64
	URL              string
	SourceID         int64
	Active           bool
	SystemEnabled    bool
	Queued           bool
	UpdateMinutes    *int64
	NextFetchAttempt *time.Time
	LastFetchAttempt *time.Time
	LastFetchSuccess *time.Time
	Failures         int64
}

// Fetch event kinds recorded per feed.
const (
	EventQueued         = "queued"
	EventFetchSucceeded = "fetch_succeeded"
	EventFetchFailed    = "fetch_failed"
)

// FetchResult is the outcome of one feed fetch, written back by a
// worker.
type FetchResult struct {
	FeedID      int64
	Success     bool
	Note        string
	NextAttempt time.Time
}

// Story is one extracted feed entry.
type Story struct {
	ID          int64
	FeedID      int64
	SourceID    int64
	URL         string
	GUID        string
	Title       string
	PublishedAt *time.Time
	FetchedAt   time.Time
}

// DayCount is one day's story volume.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
	Type  string `json:"type"`
}

// SourceCount is one source's story volume.
type SourceCount struct {
	SourceID int64 `json:"sources_id"`
	Count    int64 `json:"count"`
}
