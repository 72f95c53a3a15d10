package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission results.
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
	SubmissionFailed   = "failed"
)

// Export results.
const (
	ExportOK           = "ok"
	ExportUnauthorized = "unauthorized"
	ExportFailed       = "failed"
)

// Metrics provides observability for the whitelist bot. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Inbound events by normalized kind
	Events *prometheus.CounterVec

	// Address submissions by result
	Submissions *prometheus.CounterVec

	// Export attempts by result
	Exports *prometheus.CounterVec

	// Wallet store latency by operation
	StoreLatency *prometheus.HistogramVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whitelist_events_total",
			Help: "Inbound bot events by kind",
		}, []string{"event"}),

		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whitelist_submissions_total",
			Help: "Wallet address submissions by result",
		}, []string{"result"}),

		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whitelist_exports_total",
			Help: "Registry exports by result",
		}, []string{"result"}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "whitelist_store_duration_seconds",
			Help:    "Duration of wallet store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
	}
}

func (m *Metrics) IncEvent(event string) {
	if m != nil {
		m.Events.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) IncSubmission(result string) {
	if m != nil {
		m.Submissions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncExport(result string) {
	if m != nil {
		m.Exports.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveStore(op string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}
