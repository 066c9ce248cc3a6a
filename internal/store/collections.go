// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/podops/overseer/internal/model"
)

// CreateCollection inserts a collection and its group links in one
// transaction.
func (s *Store) CreateCollection(ctx context.Context, c *model.Collection) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: create collection: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertCollectionTx(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

func insertCollectionTx(ctx context.Context, tx *sql.Tx, c *model.Collection) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO collections (id, name, status, created_at, linked_episode_id, parent_collection_id) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Status.String(), formatTime(c.CreatedAt), c.LinkedEpisodeID, c.ParentCollectionID,
	)
	if err != nil {
		return fmt.Errorf("store: insert collection: %w", err)
	}
	for _, gid := range c.GroupIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collection_groups (collection_id, group_id) VALUES (?, ?)`,
			c.ID, gid); err != nil {
			return fmt.Errorf("store: link collection group: %w", err)
		}
	}
	return nil
}

func (s *Store) collectionGroups(ctx context.Context, collectionID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT group_id FROM collection_groups WHERE collection_id = ? ORDER BY group_id`, collectionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, err
		}
		out = append(out, gid)
	}
	return out, rows.Err()
}

// GetCollection fetches one collection with its group links.
func (s *Store) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	var c model.Collection
	var status, createdAt string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, status, created_at, linked_episode_id, parent_collection_id FROM collections WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &status, &createdAt, &c.LinkedEpisodeID, &c.ParentCollectionID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get collection: %w", err)
	}
	c.Status = model.CollectionStatus(status)
	c.CreatedAt = parseTime(createdAt)
	c.GroupIDs, err = s.collectionGroups(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("store: get collection groups: %w", err)
	}
	return &c, nil
}

// BuildingCollectionForGroup returns the group's building collection, or
// ErrNotFound when none exists. More than one building collection is a
// corrupted invariant and surfaces as an error.
func (s *Store) BuildingCollectionForGroup(ctx context.Context, groupID string) (*model.Collection, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id FROM collections c
		JOIN collection_groups cg ON cg.collection_id = c.id
		WHERE cg.group_id = ? AND c.status = 'building'
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("store: building collection: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return s.GetCollection(ctx, ids[0])
	default:
		return nil, fmt.Errorf("store: group %s has %d building collections", groupID, len(ids))
	}
}

// SnapshotParams describes the atomic snapshot transition of C3.
type SnapshotParams struct {
	CollectionID  string // the building collection to freeze
	EpisodeID     string // episode the snapshot is bound to
	SnapshotName  string
	SuccessorID   string
	SuccessorName string
	GroupIDs      []string // group assignment inherited by the successor
	Now           time.Time
}

// SnapshotCollection atomically freezes a building collection into a
// snapshot, creates the successor building collection with the same group
// assignment, and stamps the episode row with the snapshot ID. Either all
// writes commit or none do.
func (s *Store) SnapshotCollection(ctx context.Context, p SnapshotParams) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out, err := tx.ExecContext(ctx, `
		UPDATE collections
		SET name = ?, status = 'snapshot', linked_episode_id = ?
		WHERE id = ? AND status = 'building'
	`, p.SnapshotName, p.EpisodeID, p.CollectionID)
	if err != nil {
		return fmt.Errorf("store: freeze collection: %w", err)
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return fmt.Errorf("store: collection %s is not building: %w", p.CollectionID, ErrNotFound)
	}

	successor := &model.Collection{
		ID:                 p.SuccessorID,
		Name:               p.SuccessorName,
		Status:             model.CollectionBuilding,
		CreatedAt:          p.Now,
		ParentCollectionID: p.CollectionID,
		GroupIDs:           p.GroupIDs,
	}
	if err := insertCollectionTx(ctx, tx, successor); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE episodes SET snapshot_collection_id = ?, updated_at = ? WHERE id = ?`,
		p.CollectionID, formatTime(p.Now), p.EpisodeID); err != nil {
		return fmt.Errorf("store: bind episode snapshot: %w", err)
	}

	return tx.Commit()
}

// ExpireEmptyCollections marks building collections older than cutoff as
// expired, but only when they hold no articles. Returns the number swept.
func (s *Store) ExpireEmptyCollections(ctx context.Context, cutoff time.Time) (int, error) {
	out, err := s.DB.ExecContext(ctx, `
		UPDATE collections SET status = 'expired'
		WHERE status = 'building'
		  AND created_at < ?
		  AND id NOT IN (SELECT DISTINCT collection_id FROM article_collections)
	`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("store: expire collections: %w", err)
	}
	n, _ := out.RowsAffected()
	return int(n), nil
}

// CollectionStats is the admin view of one collection.
type CollectionStats struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	GroupIDs     []string  `json:"group_ids"`
	ArticleCount int       `json:"article_count"`
	OldestAt     time.Time `json:"oldest_article_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListCollectionStats returns stats for all non-terminal collections plus
// recent snapshots.
func (s *Store) ListCollectionStats(ctx context.Context) ([]CollectionStats, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, status, created_at FROM collections
		WHERE status IN ('building', 'ready', 'snapshot')
		ORDER BY created_at DESC LIMIT 100
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CollectionStats
	for rows.Next() {
		var cs CollectionStats
		var createdAt string
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Status, &createdAt); err != nil {
			return nil, err
		}
		cs.CreatedAt = parseTime(createdAt)
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].GroupIDs, err = s.collectionGroups(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		count, oldest, err := s.CollectionArticleStats(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ArticleCount = count
		out[i].OldestAt = oldest
	}
	return out, nil
}
