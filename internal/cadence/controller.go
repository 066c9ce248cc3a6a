// SPDX-License-Identifier: MIT

// Package cadence decides, per podcast group, whether now is a release
// time and in which bucket. The controller only ever lengthens a group's
// configured cadence, never compresses it.
package cadence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/podops/overseer/internal/collection"
	"github.com/podops/overseer/internal/episode"
	"github.com/podops/overseer/internal/metrics"
	"github.com/podops/overseer/internal/model"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

// Action is the outcome kind of a cadence decision.
type Action string

const (
	// ActionSkip means no episode is generated this tick.
	ActionSkip Action = "skip"

	// ActionGenerate means the group is due and has content.
	ActionGenerate Action = "generate"
)

// Skip reasons.
const (
	ReasonNotDue       = "not-due"
	ReasonRetry        = "insufficient-content-retry"
	ReasonEmptyWeekly  = "empty-weekly"
	ReasonInProgress   = "in-progress"
	ReasonGroupFailure = "group-lookup-failed"
)

// Decision is one cadence outcome for one group. Escalated marks the
// weekly fallback release that ships with an article floor of one.
type Decision struct {
	Action    Action       `json:"action"`
	Bucket    model.Bucket `json:"bucket,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Escalated bool         `json:"escalated,omitempty"`
}

// Status is the readable per-group cadence state.
type Status struct {
	GroupID        string       `json:"group_id"`
	Bucket         model.Bucket `json:"bucket"`
	LastReason     string       `json:"last_reason,omitempty"`
	NextEligible   time.Time    `json:"next_eligible,omitempty"`
	PendingApology bool         `json:"pending_apology"`
	LastDecisionAt time.Time    `json:"last_decision_at,omitempty"`
}

// Generator starts one episode pipeline run. Implemented by the episode
// package; substituted by fakes in tests.
type Generator interface {
	Generate(ctx context.Context, groupID string) (string, error)
	GenerateEscalated(ctx context.Context, groupID string) (string, error)
}

// Controller runs the periodic cadence tick.
type Controller struct {
	Store     *store.Store
	State     *state.Client
	Manager   *collection.Manager
	Generator Generator

	TickInterval time.Duration
	Logger       zerolog.Logger

	mu     sync.Mutex
	status map[string]*Status
}

// Run blocks until ctx is cancelled, ticking every TickInterval.
func (c *Controller) Run(ctx context.Context) error {
	if c.TickInterval <= 0 {
		c.TickInterval = 2 * time.Hour
	}
	ticker := time.NewTicker(c.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick evaluates every active group once.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	groups, err := c.Store.ListActiveGroups(ctx)
	if err != nil {
		c.Logger.Error().Err(err).Msg("cadence tick: listing groups failed")
		return
	}
	for _, g := range groups {
		decision := c.DecideAndDispatch(ctx, g, now)
		c.Logger.Debug().
			Str("group_id", g.ID).
			Str("action", string(decision.Action)).
			Str("bucket", decision.Bucket.String()).
			Str("reason", decision.Reason).
			Msg("cadence decision")
	}
}

// DecideAndDispatch evaluates one group and, on GENERATE, starts the
// pipeline asynchronously. The pipeline owns group-lock acquisition; a
// held lock short-circuits to SKIP(in-progress) here without side effects.
func (c *Controller) DecideAndDispatch(ctx context.Context, g *model.PodcastGroup, now time.Time) Decision {
	held, err := c.State.GroupLockHeld(ctx, g.ID)
	if err == nil && held {
		d := Decision{Action: ActionSkip, Reason: ReasonInProgress}
		c.record(ctx, g, now, d)
		metrics.IncCadenceDecision("skip-in-progress")
		return d
	}

	d := c.Decide(ctx, g, now)
	c.record(ctx, g, now, d)

	switch {
	case d.Action == ActionGenerate:
		metrics.IncCadenceDecision("generate")
		go c.dispatch(g.ID, d.Escalated)
	case d.Reason == ReasonNotDue:
		metrics.IncCadenceDecision("skip-not-due")
	case d.Reason == ReasonRetry:
		metrics.IncCadenceDecision("skip-insufficient")
	case d.Reason == ReasonEmptyWeekly:
		metrics.IncCadenceDecision("skip-empty-weekly")
	}
	return d
}

func (c *Controller) dispatch(groupID string, escalated bool) {
	// Detached from the tick context: a running pipeline survives the
	// next tick. The group lock TTL bounds stuck runs.
	generate := c.Generator.Generate
	if escalated {
		generate = c.Generator.GenerateEscalated
	}
	id, err := generate(context.Background(), groupID)
	if err != nil {
		if errors.Is(err, episode.ErrLockHeld) {
			return
		}
		c.Logger.Error().Err(err).Str("group_id", groupID).Msg("episode generation failed")
		return
	}
	c.Logger.Info().Str("group_id", groupID).Str("episode_id", id).Msg("episode generation finished")
}

// Decide implements the escalation algorithm for group g at wall time now.
func (c *Controller) Decide(ctx context.Context, g *model.PodcastGroup, now time.Time) Decision {
	last, err := c.Store.LastEpisodeTime(ctx, g.ID)
	if err != nil {
		c.Logger.Error().Err(err).Str("group_id", g.ID).Msg("cadence: last episode lookup failed")
		return Decision{Action: ActionSkip, Reason: ReasonGroupFailure}
	}

	// since is infinite when the group never released.
	infinite := last.IsZero()
	var since time.Duration
	if !infinite {
		since = now.Sub(last)
	}

	preferred := model.BucketFromSchedule(g.Schedule)
	if !infinite && since < preferred.Window() {
		return Decision{Action: ActionSkip, Bucket: preferred, Reason: ReasonNotDue}
	}

	active, err := c.Manager.GetActive(ctx, g)
	if err != nil {
		c.Logger.Error().Err(err).Str("group_id", g.ID).Msg("cadence: active collection lookup failed")
		return Decision{Action: ActionSkip, Reason: ReasonGroupFailure}
	}
	readiness, err := c.Manager.Readiness(ctx, active, c.minArticles(ctx, g))
	if err != nil {
		c.Logger.Error().Err(err).Str("group_id", g.ID).Msg("cadence: readiness check failed")
		return Decision{Action: ActionSkip, Reason: ReasonGroupFailure}
	}

	bucket := preferred
	for {
		if readiness.Ready {
			return Decision{Action: ActionGenerate, Bucket: bucket}
		}
		next, ok := bucket.Next()
		if !ok {
			// Already at weekly. Release with whatever exists, or record
			// the apology for the next successful episode.
			if readiness.ArticleCount >= 1 {
				return Decision{Action: ActionGenerate, Bucket: model.BucketWeekly, Escalated: true}
			}
			if err := c.State.SetPendingApology(ctx, g.ID); err != nil {
				c.Logger.Warn().Err(err).Str("group_id", g.ID).Msg("cadence: apology flag write failed")
			}
			return Decision{Action: ActionSkip, Bucket: model.BucketWeekly, Reason: ReasonEmptyWeekly}
		}
		if !infinite && since < next.Window() {
			return Decision{Action: ActionSkip, Bucket: bucket, Reason: ReasonRetry}
		}
		bucket = next
	}
}

func (c *Controller) minArticles(ctx context.Context, g *model.PodcastGroup) int {
	if g.MinArticles > 0 {
		return g.MinArticles
	}
	return c.State.ReviewSettings(ctx).MinArticles
}

func (c *Controller) record(ctx context.Context, g *model.PodcastGroup, now time.Time, d Decision) {
	bucket := d.Bucket
	if bucket == "" {
		bucket = model.BucketFromSchedule(g.Schedule)
	}
	pending, _ := c.State.PendingApology(ctx, g.ID)

	var nextEligible time.Time
	if last, err := c.Store.LastEpisodeTime(ctx, g.ID); err == nil && !last.IsZero() {
		nextEligible = last.Add(bucket.Window())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		c.status = make(map[string]*Status)
	}
	c.status[g.ID] = &Status{
		GroupID:        g.ID,
		Bucket:         bucket,
		LastReason:     d.Reason,
		NextEligible:   nextEligible,
		PendingApology: pending,
		LastDecisionAt: now,
	}
}

// StatusAll returns the cadence status of every group seen so far.
func (c *Controller) StatusAll() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Status, 0, len(c.status))
	for _, s := range c.status {
		out = append(out, *s)
	}
	return out
}
