// SPDX-License-Identifier: MIT

// Package episode drives the linear generation pipeline: articles →
// script → edit → audio → publish. One run per group at a time, enforced
// by the group generation lock; the production lock pauses the review
// router for the duration.
package episode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/podops/overseer/internal/collab"
	"github.com/podops/overseer/internal/collection"
	"github.com/podops/overseer/internal/log"
	"github.com/podops/overseer/internal/metrics"
	"github.com/podops/overseer/internal/model"
	"github.com/podops/overseer/internal/script"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

var (
	// ErrLockHeld means another run owns the group's generation lock.
	ErrLockHeld = errors.New("episode: generation lock held")

	// ErrGroupInactive means the group is missing or not active.
	ErrGroupInactive = errors.New("episode: group inactive")

	// ErrGroupMisconfigured means the group lacks presenters or a writer.
	ErrGroupMisconfigured = errors.New("episode: group misconfigured")

	// ErrInsufficientContent re-exports the collection sentinel for
	// callers that only import this package.
	ErrInsufficientContent = collection.ErrInsufficientContent
)

// Pipeline owns episode generation end to end.
type Pipeline struct {
	Store   *store.Store
	State   *state.Client
	Manager *collection.Manager

	Writer      collab.Writer
	Editor      collab.Editor
	Synthesizer collab.Synthesizer
	Publisher   collab.Publisher

	GroupLockTTL      time.Duration
	ProductionLockTTL time.Duration

	// Platforms is the publish target list forwarded to the publisher.
	Platforms []string

	Logger zerolog.Logger
}

// Generate runs the pipeline for one group and returns the episode ID.
// Precondition failures (lock held, inactive group, too few articles)
// return before any state change.
func (p *Pipeline) Generate(ctx context.Context, groupID string) (string, error) {
	return p.generate(ctx, groupID, 0)
}

// GenerateEscalated runs the pipeline with the article floor lowered to
// one. Used by the weekly fallback release, which ships whatever exists
// rather than skip a fourth consecutive window.
func (p *Pipeline) GenerateEscalated(ctx context.Context, groupID string) (string, error) {
	return p.generate(ctx, groupID, 1)
}

// generate is the shared path; floor <= 0 means the group's configured
// minimum applies.
func (p *Pipeline) generate(ctx context.Context, groupID string, floor int) (episodeID string, err error) {
	// 1. Group generation lock. A lock-store failure aborts: safety
	// outweighs liveness here.
	acquired, lockErr := p.State.AcquireGroupLock(ctx, groupID, p.GroupLockTTL)
	if lockErr != nil {
		return "", fmt.Errorf("episode: group lock: %w", lockErr)
	}
	if !acquired {
		return "", ErrLockHeld
	}
	defer func() {
		if relErr := p.State.ReleaseGroupLock(context.WithoutCancel(ctx), groupID); relErr != nil {
			p.Logger.Error().Err(relErr).Str("group_id", groupID).Msg("group lock release failed")
		}
	}()

	// 2. Group must be active and fully staffed.
	group, err := p.Store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrGroupInactive
		}
		return "", err
	}
	if !group.Active {
		return "", ErrGroupInactive
	}
	if len(group.PresenterIDs) == 0 || group.WriterID == "" {
		return "", ErrGroupMisconfigured
	}

	// 3. Production lock pauses the review router. Best-effort: if the
	// fast store cannot take it, generation continues. An operator-held
	// manual pause is left untouched; the workers are already stalled.
	var prodLock *state.ProductionLock
	existing, inspectErr := p.State.InspectProductionLock(ctx)
	switch {
	case inspectErr != nil:
		p.Logger.Warn().Err(inspectErr).Msg("production lock inspect failed, review pause is best-effort")
	case existing != nil && existing.Manual:
	default:
		lock := state.ProductionLock{
			GroupID:   groupID,
			StartedAt: time.Now().UTC(),
		}
		if lockErr := p.State.SetProductionLock(ctx, lock, p.ProductionLockTTL); lockErr != nil {
			p.Logger.Warn().Err(lockErr).Msg("production lock not set, review pause is best-effort")
		} else {
			prodLock = &lock
		}
	}
	defer func() {
		if prodLock == nil {
			return
		}
		// Must clear on every exit path. Never releases a manual pause.
		if clrErr := p.State.ClearProductionLock(context.WithoutCancel(ctx), false); clrErr != nil {
			p.Logger.Error().Err(clrErr).Msg("production lock clear failed")
		}
	}()

	// A crashed run may have left a non-terminal episode behind; a voiced
	// one is retriable for publishing, anything earlier is abandoned.
	if prev, prevErr := p.Store.ActiveEpisodeForGroup(ctx, groupID); prevErr == nil {
		if prev.Status == model.EpisodeVoiced {
			return prev.ID, p.retryPublish(ctx, group, prev)
		}
		if _, failErr := p.Store.TransitionEpisode(ctx, prev.ID, model.EpisodeFailed, func(e *model.Episode) {
			e.FailureReason = "abandoned-by-new-run"
		}); failErr != nil {
			return "", failErr
		}
		p.Logger.Warn().Str("episode_id", prev.ID).Msg("abandoned stale in-flight episode")
	} else if !errors.Is(prevErr, store.ErrNotFound) {
		return "", prevErr
	}

	// 4. Enough reviewed content must exist before any row is written.
	minArticles := group.MinArticlesOrDefault()
	if floor > 0 && floor < minArticles {
		minArticles = floor
	}
	active, err := p.Manager.GetActive(ctx, group)
	if err != nil {
		return "", err
	}
	readiness, err := p.Manager.Readiness(ctx, active, minArticles)
	if err != nil {
		return "", err
	}
	if readiness.ArticleCount < minArticles {
		return "", fmt.Errorf("%w: %s", ErrInsufficientContent, readiness.Reason)
	}

	return p.run(ctx, group, minArticles, prodLock)
}

// run executes S1..S6 once the preconditions hold and the locks are set.
// prodLock is the production lock this run owns, nil when a manual pause
// or a fast-store failure left it unset.
func (p *Pipeline) run(ctx context.Context, group *model.PodcastGroup, minArticles int, prodLock *state.ProductionLock) (string, error) {
	started := time.Now()
	ep := &model.Episode{
		ID:        uuid.NewString(),
		GroupID:   group.ID,
		Status:    model.EpisodeDraft,
		CreatedAt: time.Now().UTC(),
	}
	ctx = log.ContextWithEpisodeID(ctx, ep.ID)
	logger := log.WithContext(ctx, p.Logger).With().Str("group_id", group.ID).Logger()

	// S1: draft row, then the atomic snapshot.
	if err := p.Store.CreateEpisode(ctx, ep); err != nil {
		return "", err
	}
	if prodLock != nil {
		// The lock value exposes which episode holds production; bind the
		// episode ID now that the draft exists.
		bound := *prodLock
		bound.EpisodeID = ep.ID
		if err := p.State.SetProductionLock(ctx, bound, p.ProductionLockTTL); err != nil {
			logger.Warn().Err(err).Msg("production lock episode binding failed")
		}
	}
	snapshot, err := p.Manager.Snapshot(ctx, group, ep.ID, minArticles)
	if err != nil {
		metrics.IncStageFailure("snapshot")
		reason := "snapshot-failed"
		if errors.Is(err, collection.ErrInsufficientContent) {
			reason = "insufficient-articles"
		}
		p.fail(ctx, ep.ID, reason)
		return ep.ID, err
	}
	articles, err := p.Manager.Articles(ctx, snapshot.ID)
	if err != nil {
		metrics.IncStageFailure("snapshot")
		p.fail(ctx, ep.ID, "snapshot-resolve-failed")
		return ep.ID, err
	}
	logger.Info().Str("snapshot_id", snapshot.ID).Int("articles", len(articles)).Msg("snapshot frozen")

	// S2: script generation.
	scriptText, err := p.generateScript(ctx, group, snapshot, articles)
	if err != nil {
		metrics.IncStageFailure("script")
		p.fail(ctx, ep.ID, "writer-"+reasonDetail(err))
		return ep.ID, err
	}
	if _, err := p.Store.TransitionEpisode(ctx, ep.ID, model.EpisodeScripted, func(e *model.Episode) {
		e.Script = scriptText
	}); err != nil {
		return ep.ID, err
	}

	// S3: edit pass with fallback to the unedited script.
	edited, degraded := p.editScript(ctx, group, scriptText)
	if degraded {
		metrics.IncStageFailure("edit")
	}
	if _, err := p.Store.TransitionEpisode(ctx, ep.ID, model.EpisodeEdited, func(e *model.Episode) {
		e.EditedScript = edited
		e.DegradedEdit = degraded
	}); err != nil {
		return ep.ID, err
	}

	// S4: metadata, never fatal.
	meta := p.generateMetadata(ctx, ep.ID, edited, snapshot, articles)

	// S5: audio synthesis.
	audio, err := p.synthesize(ctx, group, ep.ID, edited)
	if err != nil {
		metrics.IncStageFailure("tts")
		p.fail(ctx, ep.ID, "tts-"+reasonDetail(err))
		return ep.ID, err
	}
	if err := p.Store.InsertAudioFile(ctx, audio); err != nil {
		p.fail(ctx, ep.ID, "tts-persist-failed")
		return ep.ID, err
	}
	if _, err := p.Store.TransitionEpisode(ctx, ep.ID, model.EpisodeVoiced, func(e *model.Episode) {
		e.Metadata = meta
	}); err != nil {
		return ep.ID, err
	}

	// S6: publish.
	published, err := p.publish(ctx, ep.ID, audio.StoragePath, meta)
	if err != nil {
		metrics.IncStageFailure("publish")
		p.fail(ctx, ep.ID, "publish-"+reasonDetail(err))
		return ep.ID, err
	}
	if !published {
		// No platform accepted the episode; it stays voiced and retriable.
		metrics.IncEpisodeOutcome("voiced")
		logger.Warn().Msg("publisher returned no URLs, episode stays voiced")
		return ep.ID, nil
	}

	if err := p.State.ConsumePendingApology(ctx, group.ID); err != nil {
		logger.Warn().Err(err).Msg("apology flag consume failed")
	}
	metrics.IncEpisodeOutcome("published")
	metrics.ObserveEpisodeDuration(time.Since(started).Seconds())
	logger.Info().Dur("elapsed", time.Since(started)).Msg("episode published")
	return ep.ID, nil
}

func (p *Pipeline) generateScript(ctx context.Context, group *model.PodcastGroup, snapshot *model.Collection, articles []*model.Article) (string, error) {
	req := collab.ScriptRequest{
		SnapshotID:    snapshot.ID,
		Presenters:    group.PresenterIDs,
		WriterProfile: group.WriterID,
		TargetMinutes: group.TargetMinutes,
	}
	for _, a := range articles {
		req.Articles = append(req.Articles, collab.ScriptArticle{
			ID:      a.ID,
			Title:   a.Title,
			Summary: a.Summary,
			Body:    a.Body,
		})
	}
	resp, err := p.Writer.Script(ctx, req)
	if err != nil {
		return "", err
	}
	cleaned := script.Clean(resp.Script)
	if cleaned == "" {
		return "", fmt.Errorf("%w: script empty after cleaning", collab.ErrContract)
	}
	return cleaned, nil
}

// editScript returns the edited text, falling back to the unedited script
// with the degraded flag when the editor fails or returns nothing usable.
func (p *Pipeline) editScript(ctx context.Context, group *model.PodcastGroup, scriptText string) (string, bool) {
	resp, err := p.Editor.Edit(ctx, collab.EditRequest{
		Script: scriptText,
		Context: collab.EditContext{
			GroupName:     group.Name,
			TargetMinutes: group.TargetMinutes,
		},
	})
	if err != nil {
		p.Logger.Warn().Err(err).Msg("editor failed, using unedited script")
		return scriptText, true
	}
	cleaned := script.Clean(resp.EditedScript)
	if cleaned == "" {
		p.Logger.Warn().Msg("editor returned empty output, using unedited script")
		return scriptText, true
	}
	return cleaned, false
}

// generateMetadata is best-effort; on failure it synthesizes metadata from
// the snapshot name and article tags.
func (p *Pipeline) generateMetadata(ctx context.Context, episodeID, scriptText string, snapshot *model.Collection, articles []*model.Article) model.EpisodeMetadata {
	resp, err := p.Writer.Metadata(ctx, collab.MetadataRequest{
		EpisodeID: episodeID,
		Script:    scriptText,
	})
	if err == nil && resp.Title != "" {
		return model.EpisodeMetadata{
			Title:       resp.Title,
			Description: resp.Description,
			Tags:        resp.Tags,
		}
	}
	if err != nil {
		metrics.IncStageFailure("metadata")
		p.Logger.Warn().Err(err).Msg("metadata generation failed, synthesizing fallback")
	}

	tagSet := map[string]struct{}{}
	var tags []string
	for _, a := range articles {
		for _, t := range a.Tags {
			if _, ok := tagSet[t]; !ok {
				tagSet[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	return model.EpisodeMetadata{
		Title:       snapshot.Name,
		Description: fmt.Sprintf("Coverage of %d stories.", len(articles)),
		Tags:        tags,
	}
}

func (p *Pipeline) synthesize(ctx context.Context, group *model.PodcastGroup, episodeID, scriptText string) (*model.AudioFile, error) {
	voiceMap := make(map[string]string, len(group.PresenterIDs))
	for i, presenter := range group.PresenterIDs {
		voiceMap[strconv.Itoa(i+1)] = presenter
	}
	resp, err := p.Synthesizer.Synthesize(ctx, collab.SynthesizeRequest{
		EpisodeID: episodeID,
		Script:    scriptText,
		VoiceMap:  voiceMap,
	})
	if err != nil {
		return nil, err
	}
	return &model.AudioFile{
		ID:              uuid.NewString(),
		EpisodeID:       episodeID,
		StoragePath:     resp.AudioURL,
		DurationSeconds: resp.DurationSeconds,
		ByteSize:        resp.ByteSize,
		Format:          resp.Format,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// publish returns whether at least one platform URL was stored.
func (p *Pipeline) publish(ctx context.Context, episodeID, audioURL string, meta model.EpisodeMetadata) (bool, error) {
	resp, err := p.Publisher.Publish(ctx, collab.PublishRequest{
		EpisodeID: episodeID,
		AudioURL:  audioURL,
		Metadata: collab.PublishMetadata{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
		},
		Platforms: p.Platforms,
	})
	if err != nil {
		return false, err
	}
	var urls []string
	for _, r := range resp.Results {
		if r.URL != "" && r.Error == "" {
			urls = append(urls, r.URL)
		}
	}
	if len(urls) == 0 {
		return false, nil
	}
	if _, err := p.Store.TransitionEpisode(ctx, episodeID, model.EpisodePublished, func(e *model.Episode) {
		e.PublishURLs = urls
	}); err != nil {
		return false, err
	}
	return true, nil
}

// retryPublish re-runs only the publish stage for a voiced episode.
func (p *Pipeline) retryPublish(ctx context.Context, group *model.PodcastGroup, ep *model.Episode) error {
	audio, err := p.Store.AudioFileForEpisode(ctx, ep.ID)
	if err != nil {
		return fmt.Errorf("episode: retry publish: %w", err)
	}
	published, err := p.publish(ctx, ep.ID, audio.StoragePath, ep.Metadata)
	if err != nil {
		metrics.IncStageFailure("publish")
		p.fail(ctx, ep.ID, "publish-"+reasonDetail(err))
		return err
	}
	if published {
		metrics.IncEpisodeOutcome("published")
		if err := p.State.ConsumePendingApology(ctx, group.ID); err != nil {
			p.Logger.Warn().Err(err).Msg("apology flag consume failed")
		}
	}
	return nil
}

// fail moves the episode to its terminal failed state, preserving all
// intermediate artifacts for diagnosis.
func (p *Pipeline) fail(ctx context.Context, episodeID, reason string) {
	if _, err := p.Store.TransitionEpisode(context.WithoutCancel(ctx), episodeID, model.EpisodeFailed, func(e *model.Episode) {
		e.FailureReason = reason
	}); err != nil {
		p.Logger.Error().Err(err).Str("episode_id", episodeID).Msg("failed-state write failed")
	}
	metrics.IncEpisodeOutcome("failed")
}

// reasonDetail compresses an error chain into a short failure suffix.
func reasonDetail(err error) string {
	switch {
	case errors.Is(err, collab.ErrTransient):
		return "transient"
	case errors.Is(err, collab.ErrContract):
		return "contract"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		s := err.Error()
		if i := strings.IndexByte(s, ':'); i > 0 {
			s = s[:i]
		}
		if len(s) > 40 {
			s = s[:40]
		}
		return strings.ReplaceAll(s, " ", "-")
	}
}
