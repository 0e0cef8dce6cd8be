package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics counts relay results per event type.
type OutboxMetrics struct {
	processed      *prometheus.CounterVec
	publishLatency prometheus.Histogram
	batchSize      prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_processed_total",
			Help: "Outbox rows handled by the relay, by event type and result.",
		}, []string{"event_type", "result"}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_publish_latency_seconds",
			Help:    "Time from Publish to server acknowledgement.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_claimed_batch_size",
			Help:    "Rows claimed per relay iteration.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.processed, m.publishLatency, m.batchSize)
	return m
}

func (m *OutboxMetrics) IncProcessed(eventType, result string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *OutboxMetrics) ObservePublish(d time.Duration) {
	if m == nil || m.publishLatency == nil {
		return
	}
	m.publishLatency.Observe(d.Seconds())
}

func (m *OutboxMetrics) ObserveBatch(n int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

// Processed exposes the counter for assertions.
func (m *OutboxMetrics) Processed() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.processed
}
