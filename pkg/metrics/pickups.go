package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PickupMetrics records lifecycle and reward activity.
type PickupMetrics struct {
	created        prometheus.Counter
	reviewed       *prometheus.CounterVec
	reviewDuration prometheus.Histogram
	pointsCredited prometheus.Counter
	reviewFailures *prometheus.CounterVec
}

// NewPickupMetrics registers the pickup metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPickupMetrics(reg prometheus.Registerer) *PickupMetrics {
	if reg == nil {
		return &PickupMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pickups_created_total",
		Help: "Pickups submitted.",
	})
	reviewed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickups_reviewed_total",
		Help: "Applied review transitions by resulting status.",
	}, []string{"status"})
	reviewDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pickup_review_duration_seconds",
		Help:    "Duration of the review transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	pointsCredited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reward_points_credited_total",
		Help: "Reward points credited to staff balances.",
	})
	reviewFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickup_review_failures_total",
		Help: "Review attempts that were rejected or rolled back, by error code.",
	}, []string{"code"})
	reg.MustRegister(created, reviewed, reviewDuration, pointsCredited, reviewFailures)
	return &PickupMetrics{
		created:        created,
		reviewed:       reviewed,
		reviewDuration: reviewDuration,
		pointsCredited: pointsCredited,
		reviewFailures: reviewFailures,
	}
}

func (m *PickupMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

// ObserveReview records an applied transition and the points it credited.
func (m *PickupMetrics) ObserveReview(status string, points int64, duration time.Duration) {
	if m == nil || m.reviewed == nil {
		return
	}
	m.reviewed.WithLabelValues(normalizeLabel(status)).Inc()
	m.reviewDuration.Observe(duration.Seconds())
	if points > 0 {
		m.pointsCredited.Add(float64(points))
	}
}

func (m *PickupMetrics) IncReviewFailure(code string) {
	if m == nil || m.reviewFailures == nil {
		return
	}
	m.reviewFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
