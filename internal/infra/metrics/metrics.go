// Package metrics exposes Prometheus counters for searches, button clicks,
// and the size of the result cache.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"madbot/internal/infra/middleware"
)

// Scrape throttle per client IP.
const (
	scrapesPerMinute = 60
	scrapeBurst      = 10
)

// Search outcomes.
const (
	OutcomeResults   = "results"
	OutcomeNoResults = "no_results"
	OutcomeError     = "error"
	OutcomeThrottled = "throttled"
	OutcomeEmpty     = "empty_query"
)

// Button outcomes.
const (
	OutcomePosted    = "posted"
	OutcomeMalformed = "malformed"
	OutcomeExpired   = "expired"
	OutcomeBadIndex  = "bad_index"
	OutcomeSendError = "send_error"
)

var cacheEntriesDesc = prometheus.NewDesc(
	"madbot_result_cache_entries",
	"Number of unexpired result menus held in the cache",
	nil,
	nil,
)

// CacheSizer reports how many entries a cache holds.
type CacheSizer interface {
	Len() int
}

// cacheCollector reads the cache size on each scrape.
type cacheCollector struct {
	cache CacheSizer
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheEntriesDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(cacheEntriesDesc, prometheus.GaugeValue, float64(c.cache.Len()))
}

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reg      *prometheus.Registry
	searches *prometheus.CounterVec
	clicks   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates the collectors and registers them. cache may be nil.
func New(cache CacheSizer) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "madbot_searches_total",
			Help: "Wiki searches by wiki name and outcome",
		}, []string{"wiki", "outcome"}),
		clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "madbot_button_clicks_total",
			Help: "Result button activations by outcome",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "madbot_search_duration_seconds",
			Help:    "Time spent in a wiki search including the suggestion fallback",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"wiki"}),
	}
	m.reg.MustRegister(m.searches, m.clicks, m.latency)
	if cache != nil {
		m.reg.MustRegister(&cacheCollector{cache: cache})
	}
	return m
}

// ObserveSearch records one search outcome and its duration.
func (m *Metrics) ObserveSearch(wiki, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(wiki, outcome).Inc()
	m.latency.WithLabelValues(wiki).Observe(d.Seconds())
}

// ObserveClick records one button activation outcome.
func (m *Metrics) ObserveClick(outcome string) {
	if m == nil {
		return
	}
	m.clicks.WithLabelValues(outcome).Inc()
}

// Searches exposes the search counter for assertions.
func (m *Metrics) Searches() *prometheus.CounterVec { return m.searches }

// Clicks exposes the button counter for assertions.
func (m *Metrics) Clicks() *prometheus.CounterVec { return m.clicks }

// Registry exposes the underlying registry for tests and custom exposition.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	limit := middleware.ScrapeLimit(ctx, scrapesPerMinute, scrapeBurst)
	mux := http.NewServeMux()
	mux.Handle("/metrics", middleware.SecurityHeaders(limit(m.Handler())))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
