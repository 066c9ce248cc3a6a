// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podops/overseer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testGroup(id string, tags ...string) *model.PodcastGroup {
	return &model.PodcastGroup{
		ID:            id,
		Name:          "Group " + id,
		Active:        true,
		CategoryTags:  tags,
		Schedule:      "daily",
		PresenterIDs:  []string{"voice-a", "voice-b"},
		WriterID:      "writer-1",
		TargetMinutes: 15,
	}
}

func mustGroup(t *testing.T, s *Store, id string, tags ...string) {
	t.Helper()
	require.NoError(t, s.UpsertGroup(context.Background(), testGroup(id, tags...)))
}

func insertTestArticle(t *testing.T, s *Store, title string) *model.Article {
	t.Helper()
	a := &model.Article{
		ID:          uuid.NewString(),
		FeedID:      "feed-1",
		Link:        "https://example.com/" + title,
		Title:       title,
		Body:        "body of " + title,
		PublishedAt: time.Now().UTC().Add(-time.Hour),
		IngestedAt:  time.Now().UTC(),
		Fingerprint: uuid.NewString(),
		ReviewState: model.ReviewUnreviewed,
	}
	require.NoError(t, s.InsertArticle(context.Background(), a))
	return a
}

func TestGroupRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := testGroup("g1", "tech", "ai")
	require.NoError(t, s.UpsertGroup(ctx, g))

	got, err := s.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, g.Name, got.Name)
	assert.Equal(t, []string{"tech", "ai"}, got.CategoryTags)
	assert.Equal(t, []string{"voice-a", "voice-b"}, got.PresenterIDs)
	assert.True(t, got.Active)

	// Upsert replaces.
	g.Name = "Renamed"
	g.Active = false
	require.NoError(t, s.UpsertGroup(ctx, g))
	got, err = s.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.Active)

	_, err = s.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupsMatchingTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertGroup(ctx, testGroup("tech-show", "tech")))
	require.NoError(t, s.UpsertGroup(ctx, testGroup("biz-show", "finance", "markets")))
	untagged := testGroup("untagged-show")
	untagged.CategoryTags = nil
	require.NoError(t, s.UpsertGroup(ctx, untagged))
	inactive := testGroup("off-show", "tech")
	inactive.Active = false
	require.NoError(t, s.UpsertGroup(ctx, inactive))

	groups, err := s.GroupsMatchingTags(ctx, []string{"tech", "sports"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "tech-show", groups[0].ID)

	groups, err = s.GroupsMatchingTags(ctx, []string{"markets"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "biz-show", groups[0].ID)

	// Untagged groups never match, matching nothing is fine.
	groups, err = s.GroupsMatchingTags(ctx, []string{"cooking"})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestApplyReviewResultTerminalGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "one")

	res := model.ReviewResult{
		Tags:       []string{"ai", "tech"},
		Summary:    "short summary",
		Confidence: 0.82,
		Tier:       model.TierLight,
		ModelID:    "small-1",
	}
	require.NoError(t, s.ApplyReviewResult(ctx, a.ID, res))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewLight, got.ReviewState)
	assert.Equal(t, []string{"ai", "tech"}, got.Tags)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)

	// Review states are terminal; a second result must not overwrite.
	err = s.ApplyReviewResult(ctx, a.ID, model.ReviewResult{Tier: model.TierHeavy, Confidence: 0.1})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewLight, got.ReviewState)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
}

func TestRejectArticle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "one")

	require.NoError(t, s.RejectArticle(ctx, a.ID, "oversized-body"))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, got.ReviewState)

	// Rejected is terminal too.
	err = s.ApplyReviewResult(ctx, a.ID, model.ReviewResult{Tier: model.TierLight})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignArticleScalarSetOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := insertTestArticle(t, s, "one")

	c1 := &model.Collection{ID: "c1", Name: "C1", Status: model.CollectionBuilding, CreatedAt: time.Now().UTC()}
	c2 := &model.Collection{ID: "c2", Name: "C2", Status: model.CollectionBuilding, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateCollection(ctx, c1))
	require.NoError(t, s.CreateCollection(ctx, c2))

	require.NoError(t, s.AssignArticle(ctx, a.ID, "c1"))
	require.NoError(t, s.AssignArticle(ctx, a.ID, "c2"))
	// Repeat assignment is a no-op.
	require.NoError(t, s.AssignArticle(ctx, a.ID, "c1"))

	got, err := s.GetArticle(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.CollectionID, "scalar keeps the first assignment")

	for _, cid := range []string{"c1", "c2"} {
		articles, err := s.ArticlesByCollection(ctx, cid)
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, a.ID, articles[0].ID)
	}
}

func TestBuildingCollectionForGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustGroup(t, s, "g1")

	_, err := s.BuildingCollectionForGroup(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	c := &model.Collection{
		ID: "c1", Name: "C1", Status: model.CollectionBuilding,
		CreatedAt: time.Now().UTC(), GroupIDs: []string{"g1"},
	}
	require.NoError(t, s.CreateCollection(ctx, c))

	got, err := s.BuildingCollectionForGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, []string{"g1"}, got.GroupIDs)

	// Two building collections for one group is a corrupted invariant.
	c2 := &model.Collection{
		ID: "c2", Name: "C2", Status: model.CollectionBuilding,
		CreatedAt: time.Now().UTC(), GroupIDs: []string{"g1"},
	}
	require.NoError(t, s.CreateCollection(ctx, c2))
	_, err = s.BuildingCollectionForGroup(ctx, "g1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSnapshotCollectionAtomicity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustGroup(t, s, "g1")

	building := &model.Collection{
		ID: "c1", Name: "Group Collection", Status: model.CollectionBuilding,
		CreatedAt: now, GroupIDs: []string{"g1"},
	}
	require.NoError(t, s.CreateCollection(ctx, building))
	for i := 0; i < 3; i++ {
		a := insertTestArticle(t, s, uuid.NewString())
		require.NoError(t, s.AssignArticle(ctx, a.ID, "c1"))
	}

	ep := &model.Episode{ID: "e1", GroupID: "g1", Status: model.EpisodeDraft, CreatedAt: now}
	require.NoError(t, s.CreateEpisode(ctx, ep))

	params := SnapshotParams{
		CollectionID:  "c1",
		EpisodeID:     "e1",
		SnapshotName:  "Episode e1 Snapshot",
		SuccessorID:   "c2",
		SuccessorName: "Group Collection",
		GroupIDs:      []string{"g1"},
		Now:           now,
	}
	require.NoError(t, s.SnapshotCollection(ctx, params))

	frozen, err := s.GetCollection(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.CollectionSnapshot, frozen.Status)
	assert.Equal(t, "e1", frozen.LinkedEpisodeID)
	assert.Equal(t, "Episode e1 Snapshot", frozen.Name)

	successor, err := s.BuildingCollectionForGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "c2", successor.ID)
	assert.Equal(t, "c1", successor.ParentCollectionID)
	assert.Equal(t, []string{"g1"}, successor.GroupIDs)

	gotEp, err := s.GetEpisode(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "c1", gotEp.SnapshotCollectionID)

	// The frozen set is immutable; articles stay with the snapshot.
	count, _, err := s.CollectionArticleStats(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	count, _, err = s.CollectionArticleStats(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSnapshotCollectionRequiresBuilding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustGroup(t, s, "g1")

	c := &model.Collection{
		ID: "c1", Name: "C1", Status: model.CollectionSnapshot,
		CreatedAt: now, GroupIDs: []string{"g1"},
	}
	require.NoError(t, s.CreateCollection(ctx, c))

	err := s.SnapshotCollection(ctx, SnapshotParams{
		CollectionID: "c1",
		EpisodeID:    "e1",
		SuccessorID:  "c2",
		GroupIDs:     []string{"g1"},
		Now:          now,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing from the rolled-back transaction may be visible.
	_, err = s.GetCollection(ctx, "c2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionEpisode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	mustGroup(t, s, "g1")

	ep := &model.Episode{ID: "e1", GroupID: "g1", Status: model.EpisodeDraft, CreatedAt: now}
	require.NoError(t, s.CreateEpisode(ctx, ep))

	// Skipping a stage is illegal.
	_, err := s.TransitionEpisode(ctx, "e1", model.EpisodeEdited, nil)
	assert.Error(t, err)

	got, err := s.TransitionEpisode(ctx, "e1", model.EpisodeScripted, func(e *model.Episode) {
		e.Script = "Speaker 1: Hello."
	})
	require.NoError(t, err)
	assert.Equal(t, model.EpisodeScripted, got.Status)

	_, err = s.TransitionEpisode(ctx, "e1", model.EpisodeEdited, func(e *model.Episode) {
		e.EditedScript = "Speaker 1: Hello!"
		e.DegradedEdit = true
	})
	require.NoError(t, err)
	_, err = s.TransitionEpisode(ctx, "e1", model.EpisodeVoiced, nil)
	require.NoError(t, err)

	got, err = s.TransitionEpisode(ctx, "e1", model.EpisodePublished, func(e *model.Episode) {
		e.PublishURLs = []string{"https://pods.example/e1"}
	})
	require.NoError(t, err)
	assert.False(t, got.PublishedAt.IsZero())

	// Published is terminal.
	_, err = s.TransitionEpisode(ctx, "e1", model.EpisodeFailed, nil)
	assert.Error(t, err)

	reread, err := s.GetEpisode(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.EpisodePublished, reread.Status)
	assert.Equal(t, "Speaker 1: Hello.", reread.Script)
	assert.Equal(t, "Speaker 1: Hello!", reread.EditedScript)
	assert.True(t, reread.DegradedEdit)
	assert.Equal(t, []string{"https://pods.example/e1"}, reread.PublishURLs)
}

func TestTransitionEpisodeFailPreservesArtifacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustGroup(t, s, "g1")
	ep := &model.Episode{ID: "e1", GroupID: "g1", Status: model.EpisodeDraft, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateEpisode(ctx, ep))
	_, err := s.TransitionEpisode(ctx, "e1", model.EpisodeScripted, func(e *model.Episode) {
		e.Script = "Speaker 1: Saved."
	})
	require.NoError(t, err)

	_, err = s.TransitionEpisode(ctx, "e1", model.EpisodeFailed, func(e *model.Episode) {
		e.FailureReason = "tts-timeout"
	})
	require.NoError(t, err)

	got, err := s.GetEpisode(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.EpisodeFailed, got.Status)
	assert.Equal(t, "tts-timeout", got.FailureReason)
	assert.Equal(t, "Speaker 1: Saved.", got.Script)
}

func TestLastEpisodeTimeExcludesFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustGroup(t, s, "g1")

	last, err := s.LastEpisodeTime(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, s.CreateEpisode(ctx, &model.Episode{
		ID: "e-old", GroupID: "g1", Status: model.EpisodePublished, CreatedAt: old,
	}))
	recent := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateEpisode(ctx, &model.Episode{
		ID: "e-failed", GroupID: "g1", Status: model.EpisodeFailed, CreatedAt: recent,
	}))

	last, err = s.LastEpisodeTime(ctx, "g1")
	require.NoError(t, err)
	assert.WithinDuration(t, old, last, time.Second, "failed episodes never count as releases")
}

func TestActiveEpisodeForGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustGroup(t, s, "g1")

	_, err := s.ActiveEpisodeForGroup(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateEpisode(ctx, &model.Episode{
		ID: "e1", GroupID: "g1", Status: model.EpisodeScripted, CreatedAt: time.Now().UTC(),
	}))
	got, err := s.ActiveEpisodeForGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)

	_, err = s.TransitionEpisode(ctx, "e1", model.EpisodeFailed, nil)
	require.NoError(t, err)
	_, err = s.ActiveEpisodeForGroup(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireEmptyCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	for _, gid := range []string{"g1", "g2", "g3"} {
		mustGroup(t, s, gid)
	}

	emptyStale := &model.Collection{ID: "c-empty", Name: "E", Status: model.CollectionBuilding, CreatedAt: old, GroupIDs: []string{"g1"}}
	withContent := &model.Collection{ID: "c-full", Name: "F", Status: model.CollectionBuilding, CreatedAt: old, GroupIDs: []string{"g2"}}
	fresh := &model.Collection{ID: "c-fresh", Name: "N", Status: model.CollectionBuilding, CreatedAt: time.Now().UTC(), GroupIDs: []string{"g3"}}
	for _, c := range []*model.Collection{emptyStale, withContent, fresh} {
		require.NoError(t, s.CreateCollection(ctx, c))
	}
	a := insertTestArticle(t, s, "keeper")
	require.NoError(t, s.AssignArticle(ctx, a.ID, "c-full"))

	n, err := s.ExpireEmptyCollections(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetCollection(ctx, "c-empty")
	require.NoError(t, err)
	assert.Equal(t, model.CollectionExpired, got.Status)

	// Stale but non-empty collections are never swept.
	got, err = s.GetCollection(ctx, "c-full")
	require.NoError(t, err)
	assert.Equal(t, model.CollectionBuilding, got.Status)
	got, err = s.GetCollection(ctx, "c-fresh")
	require.NoError(t, err)
	assert.Equal(t, model.CollectionBuilding, got.Status)
}

func TestAudioFileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustGroup(t, s, "g1")
	require.NoError(t, s.CreateEpisode(ctx, &model.Episode{
		ID: "e1", GroupID: "g1", Status: model.EpisodeDraft, CreatedAt: time.Now().UTC(),
	}))

	_, err := s.AudioFileForEpisode(ctx, "e1")
	assert.ErrorIs(t, err, ErrNotFound)

	f := &model.AudioFile{
		ID:              "af1",
		EpisodeID:       "e1",
		StoragePath:     "s3://bucket/e1.mp3",
		DurationSeconds: 912.4,
		ByteSize:        14_600_000,
		Format:          "mp3",
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, s.InsertAudioFile(ctx, f))

	got, err := s.AudioFileForEpisode(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, f.StoragePath, got.StoragePath)
	assert.InDelta(t, f.DurationSeconds, got.DurationSeconds, 1e-9)
	assert.Equal(t, f.ByteSize, got.ByteSize)

	// One audio row per episode.
	dup := *f
	dup.ID = "af2"
	assert.Error(t, s.InsertAudioFile(ctx, &dup))
}
