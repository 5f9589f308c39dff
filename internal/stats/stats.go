// Package stats maps the fetcher's operational counters and gauges
// onto the process metrics registry. Call sites use short dotted names
// ("db.ready", "queued_feeds") which become label values on a shared
// family, keeping the reporting surface close to the statsd-style one
// the deployment dashboards were built against.
package stats

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	gaugeVec = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rss_fetcher",
			Subsystem: "stats",
			Name:      "gauge",
			Help:      "Named operational gauges.",
		},
		[]string{"app", "name"},
	)
	counterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rss_fetcher",
			Subsystem: "stats",
			Name:      "count_total",
			Help:      "Named operational counters.",
		},
		[]string{"app", "name"},
	)
)

func register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(gaugeVec, counterVec)
	})
}

// Stats reports gauges and counters under one app label.
type Stats struct {
	app string
}

func New(app string) *Stats {
	register()
	return &Stats{app: app}
}

// Gauge sets a named gauge. Gauges keep their last value until set
// again, so callers set them every reporting pass.
func (s *Stats) Gauge(name string, value float64) {
	gaugeVec.WithLabelValues(s.app, clean(name)).Set(value)
}

// Incr adds n to a named counter.
func (s *Stats) Incr(name string, n int) {
	if n < 0 {
		return
	}
	counterVec.WithLabelValues(s.app, clean(name)).Add(float64(n))
}

func clean(name string) string {
	return strings.TrimSpace(name)
}
