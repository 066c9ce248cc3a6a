// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dedup metrics
	dedupChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overseer_dedup_checks_total",
		Help: "Dedup filter decisions by outcome",
	}, []string{"outcome"}) // outcome=accepted|duplicate

	dedupBypassedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overseer_dedup_bypassed_total",
		Help: "Articles accepted because the dedup store was unreachable (fail open)",
	})

	// Review router metrics
	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overseer_reviews_total",
		Help: "Finalized reviews by tier and outcome",
	}, []string{"tier", "outcome"}) // outcome=ok|degraded|rejected

	reviewDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "overseer_review_duration_seconds",
		Help:    "Elapsed time per reviewer tier",
		Buckets: prometheus.DefBuckets,
	}, []string{"tier"})

	reviewConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overseer_review_confidence",
		Help:    "Confidence of finalized reviews in ten equal buckets",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	reviewQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overseer_review_queue_depth",
		Help: "Current length of the review queue",
	})

	reviewPausedWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "overseer_review_paused_workers",
		Help: "Review workers currently stalled on the production lock",
	})
)

func IncDedupCheck(outcome string) { dedupChecksTotal.WithLabelValues(outcome).Inc() }
func IncDedupBypassed()            { dedupBypassedTotal.Inc() }

func IncReview(tier, outcome string) { reviewsTotal.WithLabelValues(tier, outcome).Inc() }

func ObserveReviewDuration(tier string, seconds float64) {
	reviewDurationSeconds.WithLabelValues(tier).Observe(seconds)
}

func ObserveConfidence(c float64) { reviewConfidence.Observe(c) }

func SetReviewQueueDepth(n int) { reviewQueueDepth.Set(float64(n)) }

func AddPausedWorkers(delta int) { reviewPausedWorkers.Add(float64(delta)) }
