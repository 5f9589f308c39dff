package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rss_fetcher",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"app", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rss_fetcher",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"app", "method", "path", "status"},
	)
	feedFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rss_fetcher",
			Subsystem: "feeds",
			Name:      "fetches_total",
			Help:      "Feed fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	feedFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rss_fetcher",
			Subsystem: "feeds",
			Name:      "fetch_duration_seconds",
			Help:      "Feed fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	storiesAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rss_fetcher",
			Subsystem: "stories",
			Name:      "added_total",
			Help:      "Stories saved from fetched feeds.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration,
			feedFetches, feedFetchDuration, storiesAdded)
	})
}

func RecordHTTPRequest(app, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(app, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(app, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFeedFetch(outcome string, duration time.Duration) {
	RegisterMetrics()
	feedFetches.WithLabelValues(outcome).Inc()
	feedFetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordStoriesAdded(n int) {
	RegisterMetrics()
	storiesAdded.Add(float64(n))
}
