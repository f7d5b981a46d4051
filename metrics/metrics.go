// Package metrics exposes Prometheus counters and gauges for the bridge,
// grounded on the teacher pack's internal/metrics package — same
// promauto package-level-vars shape, re-labeled for per-bulb queue depth
// and send/drop/retry counters instead of per-channel DMX values.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pjlighting/artwiz-bridge/wiz"
)

var (
	// FramesAccepted counts ArtDmx frames accepted for the configured
	// universe.
	FramesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artwiz_frames_accepted_total",
			Help: "Total ArtDmx frames accepted for the configured universe",
		},
	)

	// FramesDropped counts ArtDmx frames dropped for universe mismatch.
	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artwiz_frames_dropped_total",
			Help: "Total ArtDmx frames dropped for universe mismatch",
		},
	)

	// QueueDepth is the current per-bulb queue length.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artwiz_bulb_queue_depth",
			Help: "Current queue depth for a bulb",
		},
		[]string{"mac"},
	)

	// SentTotal counts setPilot sends (including suppressed-but-counted
	// off vectors, per §3 invariant 5) by bulb.
	SentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwiz_bulb_sent_total",
			Help: "Total setPilot commands sent (or suppressed-but-counted) per bulb",
		},
		[]string{"mac"},
	)

	// DroppedTotal counts queue-overflow drops by bulb.
	DroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwiz_bulb_dropped_total",
			Help: "Total queue-overflow drops per bulb",
		},
		[]string{"mac"},
	)

	// OffVerifyRetries counts off-transition verify retries by bulb.
	OffVerifyRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artwiz_off_verify_retries_total",
			Help: "Total off-transition verify retries per bulb",
		},
		[]string{"mac"},
	)

	// DiscoveredBulbs is the number of bulbs found by the last sweep.
	DiscoveredBulbs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artwiz_discovery_bulbs",
			Help: "Number of unique bulbs found by the last discovery sweep",
		},
	)

	// SupervisorRestarts counts bridge restarts performed by the supervisor.
	SupervisorRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artwiz_supervisor_restarts_total",
			Help: "Total times the supervisor has restarted the bridge process",
		},
	)
)

// Observer implements bulb.Observer, recording send/queue/retry events as
// Prometheus counters and gauges by mac.
type Observer struct{}

// OnSent implements bulb.Observer.
func (Observer) OnSent(mac string, v wiz.SlotVector, applied bool) {
	SentTotal.WithLabelValues(mac).Inc()
}

// OnQueueDepth implements bulb.Observer.
func (Observer) OnQueueDepth(mac string, depth int) {
	QueueDepth.WithLabelValues(mac).Set(float64(depth))
}

// OnDropped implements bulb.Observer.
func (Observer) OnDropped(mac string) {
	DroppedTotal.WithLabelValues(mac).Inc()
}

// OnOffVerifyRetry implements bulb.Observer.
func (Observer) OnOffVerifyRetry(mac string, attempt int) {
	OffVerifyRetries.WithLabelValues(mac).Inc()
}

// Handler returns an http.Handler serving /metrics in Prometheus
// exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a small HTTP server exposing /metrics and /healthz on
// addr. It blocks until the server stops; run it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(addr, mux)
}
