package scraperlib

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts scraper requests. A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	cacheHits prometheus.Counter
	latency   prometheus.Histogram
}

// NewMetrics registers the scraper collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lexicon_scraper_requests_total",
			Help: "Dictionary page downloads by outcome.",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lexicon_scraper_cache_hits_total",
			Help: "Dictionary pages served from the page cache.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexicon_scraper_fetch_seconds",
			Help:    "Time spent downloading a page, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	reg.MustRegister(m.requests, m.cacheHits, m.latency)
	return m
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(elapsed.Seconds())
	switch {
	case err == nil:
		m.requests.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNotFound):
		m.requests.WithLabelValues("not_found").Inc()
	default:
		m.requests.WithLabelValues("error").Inc()
	}
}
