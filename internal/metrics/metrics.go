// Package metrics tracks crawl counters and exposes them as Prometheus collectors.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the Prometheus series emitted by a crawler process.
// A nil *Collectors is valid and records nothing.
type Collectors struct {
	pagesFetched *prometheus.CounterVec
	pagesKept    prometheus.Counter
	skips        *prometheus.CounterVec
	bytesWritten prometheus.Counter
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	shards       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollectors registers the crawler collectors against reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		pagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_crawler_pages_fetched_total",
				Help: "Pages fetched successfully, labeled by site.",
			},
			[]string{"site"},
		),
		pagesKept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_crawler_pages_kept_total",
				Help: "Pages that passed every filter and were written to the corpus.",
			},
		),
		skips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_crawler_skips_total",
				Help: "URLs skipped, labeled by the gate that rejected them.",
			},
			[]string{"reason"},
		),
		bytesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "corpus_crawler_bytes_written_total",
				Help: "Bytes written to the filtered corpus.",
			},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_crawler_runs_total",
				Help: "Finished runs, labeled by stop reason.",
			},
			[]string{"stop_reason"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corpus_crawler_run_duration_seconds",
				Help:    "Wall time of finished runs.",
				Buckets: []float64{1, 10, 60, 300, 900, 3600, 4 * 3600, 12 * 3600},
			},
		),
		shards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_crawler_shards_total",
				Help: "Shard processes joined by a distributed run, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_crawler_http_requests_total",
				Help: "Requests served by the status endpoint, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpus_crawler_http_request_duration_seconds",
				Help:    "Histogram of status endpoint latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		),
	}
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler exposes the series gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveFetch counts one successful fetch of rawURL.
func (c *Collectors) ObserveFetch(rawURL string) {
	if c == nil {
		return
	}
	c.pagesFetched.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// ObserveSkip counts one URL dropped for reason.
func (c *Collectors) ObserveSkip(reason string) {
	if c == nil {
		return
	}
	c.skips.WithLabelValues(reason).Inc()
}

// ObserveKept counts one kept page and the filtered bytes it added.
func (c *Collectors) ObserveKept(bytesWritten int) {
	if c == nil {
		return
	}
	c.pagesKept.Inc()
	c.bytesWritten.Add(float64(bytesWritten))
}

// ObserveRun records a finished run.
func (c *Collectors) ObserveRun(stopReason string, duration time.Duration) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(stopReason).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// ObserveShard records the outcome of one shard process.
func (c *Collectors) ObserveShard(outcome string) {
	if c == nil {
		return
	}
	c.shards.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one request served by the status endpoint.
func (c *Collectors) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
