package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine run metrics

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "run_duration_seconds",
		Help:      "Duration of one engine/scheduler.Run invocation.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "runs_total",
		Help:      "Total engine runs, by outcome.",
	}, []string{"outcome"})

	ActivitiesPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "activities_placed_total",
		Help:      "Total activity instances placed, by placement tier.",
	}, []string{"tier"})

	ActivitiesFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "activities_failed_total",
		Help:      "Total activities left terminally unscheduled, by violation kind.",
	}, []string{"kind"})

	// Nightly trigger metrics

	TriggerRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "trigger_runs_total",
		Help:      "Total households processed by the nightly trigger, by outcome.",
	}, []string{"outcome"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scheduler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduler",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		RunDuration,
		RunsTotal,
		ActivitiesPlacedTotal,
		ActivitiesFailedTotal,
		TriggerRunsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer builds the metrics-port mux: /metrics for Prometheus scraping
// plus a /healthz the scrape target's own orchestrator (k8s, systemd, ...)
// can probe without hitting the public API port.
func NewServer(addr string, readiness func(ctx context.Context) bool) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if readiness != nil && !readiness(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: addr, Handler: mux}
}
