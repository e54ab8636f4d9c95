package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit trail recorder.
// Tracks accepted and rejected steps, run lifecycle and append latency.
type Metrics struct {
	StepsRecorded  *prometheus.CounterVec
	StepsRejected  *prometheus.CounterVec
	RunsStarted    prometheus.Counter
	RunsClosed     prometheus.Counter
	ChainFailures  prometheus.Counter
	AppendDuration prometheus.Histogram
}

// New registers the recorder metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regengine_steps_recorded_total",
			Help: "Total steps appended to automation runs by actor and status",
		}, []string{"actor", "status"}),
		StepsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regengine_steps_rejected_total",
			Help: "Total step appends refused, by error code",
		}, []string{"code"}),
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "regengine_runs_started_total",
			Help: "Total automation runs opened by a first step",
		}),
		RunsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "regengine_runs_closed_total",
			Help: "Total automation runs closed",
		}),
		ChainFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "regengine_trail_verification_failures_total",
			Help: "Total trail verifications that found a broken hash chain",
		}),
		AppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "regengine_append_step_duration_seconds",
			Help:    "Duration of AppendStep including validation and hashing",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) IncrementStepRecorded(actor, status string) {
	if m != nil {
		m.StepsRecorded.WithLabelValues(actor, status).Inc()
	}
}

func (m *Metrics) IncrementStepRejected(code string) {
	if m != nil {
		m.StepsRejected.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncrementRunStarted() {
	if m != nil {
		m.RunsStarted.Inc()
	}
}

func (m *Metrics) IncrementRunClosed() {
	if m != nil {
		m.RunsClosed.Inc()
	}
}

func (m *Metrics) IncrementChainFailure() {
	if m != nil {
		m.ChainFailures.Inc()
	}
}

// ObserveAppend records the duration of an AppendStep call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAppend(start time.Time) {
	if m != nil {
		m.AppendDuration.Observe(time.Since(start).Seconds())
	}
}
