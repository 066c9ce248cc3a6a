// SPDX-License-Identifier: MIT

// Package review implements the two-tier confidence-gated review router.
// Articles flow through the light reviewer first and escalate to the heavy
// reviewer when confidence is low or an escalate hint is present.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/podops/overseer/internal/collab"
	"github.com/podops/overseer/internal/collection"
	"github.com/podops/overseer/internal/log"
	"github.com/podops/overseer/internal/metrics"
	"github.com/podops/overseer/internal/model"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

// popTimeout bounds how long an idle worker blocks on the queue before
// re-checking the production lock.
const popTimeout = 2 * time.Second

// Router consumes the review queue with N workers and persists results.
type Router struct {
	Queue   *state.Queue
	State   *state.Client
	Store   *store.Store
	Manager *collection.Manager
	Light   collab.Reviewer
	Heavy   collab.Reviewer

	// PausePoll is the sleep between production-lock re-checks.
	PausePoll time.Duration

	// LightSoftBudget and HeavySoftBudget are advisory latency budgets per
	// tier. A review that exceeds its budget still counts; it only logs.
	// The hard deadline lives in the reviewer client.
	LightSoftBudget time.Duration
	HeavySoftBudget time.Duration

	// MaxBodyBytes rejects oversized articles as permanent failures.
	MaxBodyBytes int64

	Logger zerolog.Logger

	stats Stats
}

// Stats are the in-process counters surfaced by the admin endpoint.
type Stats struct {
	Processed atomic.Int64
	LightTier atomic.Int64
	HeavyTier atomic.Int64
	Degraded  atomic.Int64
	Rejected  atomic.Int64
}

// StatsSnapshot is the JSON view of Stats.
type StatsSnapshot struct {
	Processed int64 `json:"processed"`
	LightTier int64 `json:"light_tier"`
	HeavyTier int64 `json:"heavy_tier"`
	Degraded  int64 `json:"degraded"`
	Rejected  int64 `json:"rejected"`
	QueueLen  int   `json:"queue_length"`
}

// Snapshot returns the current counters plus queue depth.
func (r *Router) Snapshot(ctx context.Context) StatsSnapshot {
	n, _ := r.Queue.Length(ctx)
	return StatsSnapshot{
		Processed: r.stats.Processed.Load(),
		LightTier: r.stats.LightTier.Load(),
		HeavyTier: r.stats.HeavyTier.Load(),
		Degraded:  r.stats.Degraded.Load(),
		Rejected:  r.stats.Rejected.Load(),
		QueueLen:  n,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled. The worker
// count comes from the runtime settings at startup; live rescaling is out
// of scope.
func (r *Router) Run(ctx context.Context) error {
	if r.PausePoll <= 0 {
		r.PausePoll = 10 * time.Second
	}
	workers := r.State.ReviewSettings(ctx).Workers

	r.Logger.Info().Int("workers", workers).Msg("review router starting")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			return r.runWorker(ctx, worker)
		})
	}
	return g.Wait()
}

func (r *Router) runWorker(ctx context.Context, worker int) error {
	logger := r.Logger.With().Int("worker", worker).Logger()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Pause before each dequeue while an episode is in production.
		// In-flight reviews are never cancelled; only new dequeues stall.
		if r.productionPaused(ctx) {
			metrics.AddPausedWorkers(1)
			select {
			case <-ctx.Done():
				metrics.AddPausedWorkers(-1)
				return ctx.Err()
			case <-time.After(r.PausePoll):
			}
			metrics.AddPausedWorkers(-1)
			continue
		}

		req, err := r.Queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn().Err(err).Msg("queue pop failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if req == nil {
			continue
		}
		if n, err := r.Queue.Length(ctx); err == nil {
			metrics.SetReviewQueueDepth(n)
		}

		reqCtx := log.ContextWithArticleID(ctx, req.ArticleID)
		if err := r.process(reqCtx, *req); err != nil {
			logger.Error().Err(err).Str("article_id", req.ArticleID).Msg("review failed")
		}
	}
}

// productionPaused treats a lock-store failure as not paused; the pause is
// best-effort by design of the production lock.
func (r *Router) productionPaused(ctx context.Context) bool {
	lock, err := r.State.InspectProductionLock(ctx)
	if err != nil {
		return false
	}
	return lock != nil
}

func (r *Router) process(ctx context.Context, req model.ReviewRequest) error {
	logger := log.WithContext(ctx, r.Logger)
	settings := r.State.ReviewSettings(ctx)

	// Permanent failures are rejected without retry.
	if int64(len(req.Body)) > r.MaxBodyBytes {
		r.stats.Rejected.Add(1)
		metrics.IncReview("none", "rejected")
		return r.Store.RejectArticle(ctx, req.ArticleID, "oversized-body")
	}

	wire := collab.ReviewRequest{
		ArticleID: req.ArticleID,
		Title:     req.Title,
		Body:      req.Body,
	}
	if req.Escalate() {
		wire.Hints = &collab.ReviewHints{Escalate: true}
	}

	lightStart := time.Now()
	lightResp, lightErr := r.Light.Review(ctx, wire)
	lightElapsed := time.Since(lightStart)
	metrics.ObserveReviewDuration("light", lightElapsed.Seconds())
	if r.LightSoftBudget > 0 && lightElapsed > r.LightSoftBudget {
		logger.Warn().Dur("elapsed", lightElapsed).Dur("budget", r.LightSoftBudget).Msg("light review exceeded soft budget")
	}

	confidence := 0.0
	if lightErr == nil {
		confidence = lightResp.Confidence
	} else {
		logger.Warn().Err(lightErr).Msg("light review failed, treating as zero confidence")
	}

	if lightErr == nil && confidence >= settings.LightThreshold && !req.Escalate() {
		return r.finalize(ctx, req.ArticleID, model.ReviewResult{
			Tags:       NormalizeTags(lightResp.Tags),
			Summary:    NormalizeSummary(lightResp.Summary),
			Confidence: confidence,
			Tier:       model.TierLight,
			ModelID:    lightResp.ModelID,
		})
	}

	heavyStart := time.Now()
	heavyResp, heavyErr := r.Heavy.Review(ctx, wire)
	heavyElapsed := time.Since(heavyStart)
	metrics.ObserveReviewDuration("heavy", heavyElapsed.Seconds())
	if r.HeavySoftBudget > 0 && heavyElapsed > r.HeavySoftBudget {
		logger.Warn().Dur("elapsed", heavyElapsed).Dur("budget", r.HeavySoftBudget).Msg("heavy review exceeded soft budget")
	}

	if heavyErr == nil {
		return r.finalize(ctx, req.ArticleID, model.ReviewResult{
			Tags:       NormalizeTags(heavyResp.Tags),
			Summary:    NormalizeSummary(heavyResp.Summary),
			Confidence: heavyResp.Confidence,
			Tier:       model.TierHeavy,
			ModelID:    heavyResp.ModelID,
		})
	}
	logger.Warn().Err(heavyErr).Msg("heavy review failed")

	// Degraded fallback: persist the light result when it exists.
	if lightErr == nil {
		return r.finalize(ctx, req.ArticleID, model.ReviewResult{
			Tags:       NormalizeTags(lightResp.Tags),
			Summary:    NormalizeSummary(lightResp.Summary),
			Confidence: confidence,
			Tier:       model.TierLight,
			ModelID:    lightResp.ModelID,
			Degraded:   true,
		})
	}

	// Both tiers failed; the article row never fails harder than rejected.
	r.stats.Rejected.Add(1)
	metrics.IncReview("none", "rejected")
	if errors.Is(heavyErr, collab.ErrContract) {
		return r.Store.RejectArticle(ctx, req.ArticleID, "review-contract")
	}
	return r.Store.RejectArticle(ctx, req.ArticleID, "review-unavailable")
}

func (r *Router) finalize(ctx context.Context, articleID string, res model.ReviewResult) error {
	if err := r.Store.ApplyReviewResult(ctx, articleID, res); err != nil {
		return err
	}

	r.stats.Processed.Add(1)
	outcome := "ok"
	if res.Degraded {
		outcome = "degraded"
		r.stats.Degraded.Add(1)
	}
	if res.Tier == model.TierHeavy {
		r.stats.HeavyTier.Add(1)
	} else {
		r.stats.LightTier.Add(1)
	}
	metrics.IncReview(string(res.Tier), outcome)
	metrics.ObserveConfidence(res.Confidence)

	// Route the reviewed article into every matching group's building
	// collection.
	groups, err := r.Store.GroupsMatchingTags(ctx, res.Tags)
	if err != nil {
		return fmt.Errorf("review: match groups: %w", err)
	}
	if len(groups) == 0 {
		return nil
	}
	return r.Manager.Assign(ctx, articleID, groups)
}
