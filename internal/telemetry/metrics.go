package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	RunsTotal         = prometheus.NewCounter(prometheus.CounterOpts{Name: "tracker_runs_total", Help: "Completed tracker runs"})
	PostingsFetched   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tracker_postings_fetched_total", Help: "Postings fetched per source"}, []string{"source"})
	PostingsNew       = prometheus.NewCounter(prometheus.CounterOpts{Name: "tracker_postings_new_total", Help: "Postings seen for the first time"})
	PostingsNotified  = prometheus.NewCounter(prometheus.CounterOpts{Name: "tracker_postings_notified_total", Help: "Postings confirmed notified"})
	SourceFetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tracker_source_fetch_errors_total", Help: "Unhealthy fetches per source"}, []string{"source"})
	AlertsSent        = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "tracker_alerts_sent_total", Help: "Health alerts delivered, by kind"}, []string{"kind"})
	NotifyFailures    = prometheus.NewCounter(prometheus.CounterOpts{Name: "tracker_notify_failures_total", Help: "Webhook deliveries that failed"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			RunsTotal,
			PostingsFetched,
			PostingsNew,
			PostingsNotified,
			SourceFetchErrors,
			AlertsSent,
			NotifyFailures,
		)
	})
	return promhttp.Handler()
}

// NewServer returns an HTTP server that exposes only /metrics, for
// processes that increment counters but have no API surface of their own.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
