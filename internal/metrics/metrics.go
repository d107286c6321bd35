package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ogulcanaydogan/fee-guardian/pkg/model"
)

var (
	// Fetch metrics
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeguardian_fetch_total",
			Help: "Total number of fee fetches",
		},
		[]string{"status"}, // status: success, network, decode, timeout, unknown
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feeguardian_fetch_duration_seconds",
			Help:    "Time taken to fetch the fee from the source",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	CurrentFee = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeguardian_fee_sat_per_vbyte",
			Help: "Most recently fetched fee in sat/vB",
		},
	)

	// Alert metrics
	AlertState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeguardian_alert_state",
			Help: "Current alert state (0 unset, 1 below, 2 above)",
		},
	)

	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeguardian_state_transitions_total",
			Help: "Total number of alert state transitions",
		},
		[]string{"side"},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeguardian_alerts_total",
			Help: "Total number of alerts handed to the notifier",
		},
		[]string{"side", "status"}, // status: delivered, failed
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeguardian_http_requests_total",
			Help: "Total number of status server requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)

// Recorder feeds alerter instrumentation into the Prometheus collectors.
type Recorder struct{}

// NewRecorder returns a Recorder backed by the package collectors.
func NewRecorder() *Recorder { return &Recorder{} }

func (*Recorder) FetchSucceeded(metric model.Metric, took time.Duration) {
	FetchTotal.WithLabelValues("success").Inc()
	FetchDuration.Observe(took.Seconds())
	CurrentFee.Set(float64(metric))
}

func (*Recorder) FetchFailed(kind string, took time.Duration) {
	FetchTotal.WithLabelValues(kind).Inc()
	FetchDuration.Observe(took.Seconds())
}

func (*Recorder) StateChanged(state model.AlertState) {
	AlertState.Set(float64(state))
	StateTransitionsTotal.WithLabelValues(state.String()).Inc()
}

func (*Recorder) AlertDelivered(side model.AlertState, err error) {
	status := "delivered"
	if err != nil {
		status = "failed"
	}
	AlertsTotal.WithLabelValues(side.String(), status).Inc()
}
