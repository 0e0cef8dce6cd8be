package metrics

import "github.com/prometheus/client_golang/prometheus"

// Classifier outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
)

// ClassifierMetrics tracks calls to the external image classifier.
type ClassifierMetrics struct {
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

func NewClassifierMetrics(reg prometheus.Registerer) *ClassifierMetrics {
	if reg == nil {
		return &ClassifierMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classifier_requests_total",
		Help: "Classification requests by outcome.",
	}, []string{"outcome"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "classifier_in_flight",
		Help: "Classifier calls currently holding a slot.",
	})
	reg.MustRegister(requests, inFlight)
	return &ClassifierMetrics{requests: requests, inFlight: inFlight}
}

func (m *ClassifierMetrics) IncOutcome(outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// TrackInFlight bumps the gauge and returns the matching release.
func (m *ClassifierMetrics) TrackInFlight() func() {
	if m == nil || m.inFlight == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

func (m *ClassifierMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}

func (m *ClassifierMetrics) InFlight() prometheus.Gauge {
	return m.inFlight
}
