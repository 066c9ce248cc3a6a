// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/podops/overseer/internal/model"
)

// ErrNotFound is returned for lookups of missing rows.
var ErrNotFound = errors.New("store: not found")

func marshalStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalStrings(v string) []string {
	if v == "" || v == "[]" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(v), &out)
	return out
}

// UpsertGroup inserts or replaces a podcast group row.
func (s *Store) UpsertGroup(ctx context.Context, g *model.PodcastGroup) error {
	query := `
	INSERT INTO groups (id, name, active, category_tags, schedule, min_articles, presenter_ids, writer_id, target_minutes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		active = excluded.active,
		category_tags = excluded.category_tags,
		schedule = excluded.schedule,
		min_articles = excluded.min_articles,
		presenter_ids = excluded.presenter_ids,
		writer_id = excluded.writer_id,
		target_minutes = excluded.target_minutes
	`
	_, err := s.DB.ExecContext(ctx, query,
		g.ID, g.Name, g.Active, marshalStrings(g.CategoryTags), g.Schedule,
		g.MinArticles, marshalStrings(g.PresenterIDs), g.WriterID, g.TargetMinutes,
	)
	if err != nil {
		return fmt.Errorf("store: upsert group: %w", err)
	}
	return nil
}

func scanGroup(row *sql.Row) (*model.PodcastGroup, error) {
	var g model.PodcastGroup
	var tags, presenters string
	err := row.Scan(&g.ID, &g.Name, &g.Active, &tags, &g.Schedule, &g.MinArticles, &presenters, &g.WriterID, &g.TargetMinutes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.CategoryTags = unmarshalStrings(tags)
	g.PresenterIDs = unmarshalStrings(presenters)
	return &g, nil
}

// GetGroup fetches one group by ID.
func (s *Store) GetGroup(ctx context.Context, id string) (*model.PodcastGroup, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, active, category_tags, schedule, min_articles, presenter_ids, writer_id, target_minutes FROM groups WHERE id = ?`, id)
	return scanGroup(row)
}

// ListActiveGroups returns all groups with active=1.
func (s *Store) ListActiveGroups(ctx context.Context) ([]*model.PodcastGroup, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, active, category_tags, schedule, min_articles, presenter_ids, writer_id, target_minutes FROM groups WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list active groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.PodcastGroup
	for rows.Next() {
		var g model.PodcastGroup
		var tags, presenters string
		if err := rows.Scan(&g.ID, &g.Name, &g.Active, &tags, &g.Schedule, &g.MinArticles, &presenters, &g.WriterID, &g.TargetMinutes); err != nil {
			return nil, err
		}
		g.CategoryTags = unmarshalStrings(tags)
		g.PresenterIDs = unmarshalStrings(presenters)
		out = append(out, &g)
	}
	return out, rows.Err()
}

// GroupsMatchingTags returns active groups whose category tags intersect
// the given article tags. Untagged groups never match.
func (s *Store) GroupsMatchingTags(ctx context.Context, articleTags []string) ([]*model.PodcastGroup, error) {
	groups, err := s.ListActiveGroups(ctx)
	if err != nil {
		return nil, err
	}
	tagSet := make(map[string]struct{}, len(articleTags))
	for _, t := range articleTags {
		tagSet[t] = struct{}{}
	}
	var out []*model.PodcastGroup
	for _, g := range groups {
		for _, ct := range g.CategoryTags {
			if _, ok := tagSet[ct]; ok {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}
