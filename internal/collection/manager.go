// SPDX-License-Identifier: MIT

// Package collection owns the lifecycle of article collections: one
// building collection per active group, immutable snapshots at episode
// time, and expiry of abandoned empties. No other component mutates
// collection rows.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/podops/overseer/internal/metrics"
	"github.com/podops/overseer/internal/model"
	"github.com/podops/overseer/internal/store"
)

// ErrInsufficientContent is returned when a snapshot is attempted on a
// collection below the group's minimum article threshold.
var ErrInsufficientContent = errors.New("collection: insufficient content")

// Manager maintains the unique building collection per group.
type Manager struct {
	store        *store.Store
	stalenessMax time.Duration
	logger       zerolog.Logger

	// createMu serializes get-or-create so two callers cannot both create
	// a building collection for the same group.
	createMu sync.Mutex
}

// NewManager returns a collection manager.
func NewManager(st *store.Store, stalenessMax time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{store: st, stalenessMax: stalenessMax, logger: logger}
}

// GetActive returns the unique building collection of the group, creating
// one if absent.
func (m *Manager) GetActive(ctx context.Context, group *model.PodcastGroup) (*model.Collection, error) {
	c, err := m.store.BuildingCollectionForGroup(ctx, group.ID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	// Re-check under the lock; another caller may have just created it.
	c, err = m.store.BuildingCollectionForGroup(ctx, group.ID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	c = &model.Collection{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("%s Collection", group.Name),
		Status:    model.CollectionBuilding,
		CreatedAt: time.Now().UTC(),
		GroupIDs:  []string{group.ID},
	}
	if err := m.store.CreateCollection(ctx, c); err != nil {
		return nil, err
	}
	m.logger.Info().
		Str("group_id", group.ID).
		Str("collection_id", c.ID).
		Msg("created building collection")
	return c, nil
}

// Assign attaches the article to each group's active collection. The
// scalar collection_id on the article is set on the first assignment only;
// the link table carries the rest.
func (m *Manager) Assign(ctx context.Context, articleID string, groups []*model.PodcastGroup) error {
	for _, g := range groups {
		c, err := m.GetActive(ctx, g)
		if err != nil {
			return fmt.Errorf("collection: assign to group %s: %w", g.ID, err)
		}
		if err := m.store.AssignArticle(ctx, articleID, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Readiness is the advisory generation-readiness of a collection.
type Readiness struct {
	Ready        bool
	ArticleCount int
	OldestAt     time.Time
	Reason       string
}

// Readiness reports whether the collection can feed an episode: at least
// the group minimum of articles, with the oldest still fresh.
func (m *Manager) Readiness(ctx context.Context, c *model.Collection, minArticles int) (Readiness, error) {
	count, oldest, err := m.store.CollectionArticleStats(ctx, c.ID)
	if err != nil {
		return Readiness{}, err
	}
	r := Readiness{ArticleCount: count, OldestAt: oldest}
	switch {
	case count < minArticles:
		r.Reason = fmt.Sprintf("%d of %d articles", count, minArticles)
	case !oldest.IsZero() && time.Since(oldest) > m.stalenessMax:
		r.Reason = "oldest article stale"
	default:
		r.Ready = true
	}
	return r, nil
}

// Snapshot atomically freezes the group's building collection for the
// given episode and creates the successor. Returns the frozen snapshot.
// minArticles is the effective threshold; a weekly-escalated release
// lowers it to one.
func (m *Manager) Snapshot(ctx context.Context, group *model.PodcastGroup, episodeID string, minArticles int) (*model.Collection, error) {
	active, err := m.GetActive(ctx, group)
	if err != nil {
		return nil, err
	}

	count, _, err := m.store.CollectionArticleStats(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	if count < minArticles {
		return nil, fmt.Errorf("%w: %d of %d articles", ErrInsufficientContent, count, minArticles)
	}

	now := time.Now().UTC()
	params := store.SnapshotParams{
		CollectionID:  active.ID,
		EpisodeID:     episodeID,
		SnapshotName:  fmt.Sprintf("Episode %s Snapshot", episodeID),
		SuccessorID:   uuid.NewString(),
		SuccessorName: fmt.Sprintf("%s Collection", group.Name),
		GroupIDs:      active.GroupIDs,
		Now:           now,
	}
	if err := m.store.SnapshotCollection(ctx, params); err != nil {
		return nil, err
	}
	metrics.IncSnapshots()

	m.logger.Info().
		Str("group_id", group.ID).
		Str("snapshot_id", active.ID).
		Str("successor_id", params.SuccessorID).
		Str("episode_id", episodeID).
		Int("articles", count).
		Msg("collection snapshot created")

	return m.store.GetCollection(ctx, active.ID)
}

// Articles resolves the article set of a collection.
func (m *Manager) Articles(ctx context.Context, collectionID string) ([]*model.Article, error) {
	return m.store.ArticlesByCollection(ctx, collectionID)
}
