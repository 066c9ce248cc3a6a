// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cadence metrics
	cadenceDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overseer_cadence_decisions_total",
		Help: "Cadence controller decisions per outcome",
	}, []string{"decision"}) // decision=generate|skip-not-due|skip-in-progress|skip-insufficient|skip-empty-weekly

	// Episode pipeline metrics
	episodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overseer_episodes_total",
		Help: "Episode pipeline terminal outcomes",
	}, []string{"outcome"}) // outcome=published|voiced|failed

	episodeStageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overseer_episode_stage_failures_total",
		Help: "Episode pipeline failures by stage",
	}, []string{"stage"}) // stage=snapshot|script|edit|metadata|tts|publish

	episodeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "overseer_episode_duration_seconds",
		Help:    "Wall time of a full pipeline run",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})

	// Collection metrics
	collectionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overseer_collections_swept_total",
		Help: "Empty stale building collections marked expired by the sweeper",
	})

	snapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "overseer_collection_snapshots_total",
		Help: "Collections frozen into episode snapshots",
	})
)

func IncCadenceDecision(decision string) {
	cadenceDecisionsTotal.WithLabelValues(decision).Inc()
}

func IncEpisodeOutcome(outcome string) { episodesTotal.WithLabelValues(outcome).Inc() }

func IncStageFailure(stage string) { episodeStageFailures.WithLabelValues(stage).Inc() }

func ObserveEpisodeDuration(seconds float64) { episodeDurationSeconds.Observe(seconds) }

func IncCollectionsSwept() { collectionsSweptTotal.Inc() }
func IncSnapshots()        { snapshotsTotal.Inc() }
