package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for deadline classification and escalation.
type Metrics struct {
	// Classifications by resulting status and regulatory type
	Classifications *prometheus.CounterVec

	// Extensions granted by regulatory type and status at request time
	Extensions *prometheus.CounterVec

	// Extension attempts refused by the escalation policy
	ExtensionsRefused *prometheus.CounterVec
}

// New registers the deadline metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regengine_deadline_classifications_total",
			Help: "Total deadline classifications by status and regulatory type",
		}, []string{"status", "type"}),

		Extensions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regengine_deadline_extensions_total",
			Help: "Total deadline extensions granted by regulatory type and status at request",
		}, []string{"type", "status"}),

		ExtensionsRefused: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regengine_deadline_extensions_refused_total",
			Help: "Total extension requests refused by the escalation policy",
		}, []string{"type", "status"}),
	}
}

// IncrementClassification records one classification outcome.
func (m *Metrics) IncrementClassification(status, regulatoryType string) {
	if m != nil {
		m.Classifications.WithLabelValues(status, bucketType(regulatoryType)).Inc()
	}
}

// IncrementExtension records a granted extension.
func (m *Metrics) IncrementExtension(regulatoryType, status string) {
	if m != nil {
		m.Extensions.WithLabelValues(bucketType(regulatoryType), status).Inc()
	}
}

// IncrementExtensionRefused records an extension the policy did not allow.
func (m *Metrics) IncrementExtensionRefused(regulatoryType, status string) {
	if m != nil {
		m.ExtensionsRefused.WithLabelValues(bucketType(regulatoryType), status).Inc()
	}
}

// bucketType keeps label cardinality bounded: free-form types share "other".
func bucketType(t string) string {
	switch t {
	case "dsr", "breach-notification", "dpia-review", "vendor-review":
		return t
	default:
		return "other"
	}
}
