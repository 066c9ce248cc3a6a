// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/podops/overseer/internal/model"
)

// InsertArticle persists a freshly ingested article in the unreviewed state.
func (s *Store) InsertArticle(ctx context.Context, a *model.Article) error {
	query := `
	INSERT INTO articles (id, feed_id, link, title, body, published_at, ingested_at, fingerprint, review_state, tags, summary, confidence, model_id, degraded)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	state := a.ReviewState
	if state == "" {
		state = model.ReviewUnreviewed
	}
	_, err := s.DB.ExecContext(ctx, query,
		a.ID, a.FeedID, a.Link, a.Title, a.Body,
		formatTime(a.PublishedAt), formatTime(a.IngestedAt), a.Fingerprint,
		state.String(), marshalStrings(a.Tags), a.Summary, a.Confidence, a.ModelID, a.Degraded,
	)
	if err != nil {
		return fmt.Errorf("store: insert article: %w", err)
	}
	return nil
}

// GetArticle fetches one article by ID.
func (s *Store) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	query := `
	SELECT id, feed_id, link, title, body, published_at, ingested_at, fingerprint,
	       review_state, tags, summary, confidence, model_id, degraded, COALESCE(collection_id, '')
	FROM articles WHERE id = ?
	`
	var a model.Article
	var published, ingested, state, tags string
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.FeedID, &a.Link, &a.Title, &a.Body, &published, &ingested, &a.Fingerprint,
		&state, &tags, &a.Summary, &a.Confidence, &a.ModelID, &a.Degraded, &a.CollectionID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get article: %w", err)
	}
	a.PublishedAt = parseTime(published)
	a.IngestedAt = parseTime(ingested)
	a.ReviewState = model.ReviewState(state)
	a.Tags = unmarshalStrings(tags)
	return &a, nil
}

// ApplyReviewResult persists a review outcome on an unreviewed article.
// Review states are terminal once left, so the guard keeps a second write
// from overwriting the first.
func (s *Store) ApplyReviewResult(ctx context.Context, articleID string, res model.ReviewResult) error {
	state := model.ReviewLight
	if res.Tier == model.TierHeavy {
		state = model.ReviewHeavy
	}
	query := `
	UPDATE articles
	SET review_state = ?, tags = ?, summary = ?, confidence = ?, model_id = ?, degraded = ?
	WHERE id = ? AND review_state = 'unreviewed'
	`
	out, err := s.DB.ExecContext(ctx, query,
		state.String(), marshalStrings(res.Tags), res.Summary, res.Confidence, res.ModelID, res.Degraded, articleID,
	)
	if err != nil {
		return fmt.Errorf("store: apply review result: %w", err)
	}
	n, _ := out.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: article %s not unreviewed: %w", articleID, ErrNotFound)
	}
	return nil
}

// RejectArticle marks an article permanently rejected with a reason.
func (s *Store) RejectArticle(ctx context.Context, articleID, reason string) error {
	query := `
	UPDATE articles SET review_state = 'rejected', reject_reason = ?
	WHERE id = ? AND review_state = 'unreviewed'
	`
	_, err := s.DB.ExecContext(ctx, query, reason, articleID)
	if err != nil {
		return fmt.Errorf("store: reject article: %w", err)
	}
	return nil
}

// AssignArticle links an article to a collection via the link table and
// sets the scalar collection_id on first assignment only. The link table
// is authoritative for multi-group membership.
func (s *Store) AssignArticle(ctx context.Context, articleID, collectionID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: assign article: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO article_collections (article_id, collection_id) VALUES (?, ?)`,
		articleID, collectionID); err != nil {
		return fmt.Errorf("store: link article: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE articles SET collection_id = ? WHERE id = ? AND collection_id IS NULL`,
		collectionID, articleID); err != nil {
		return fmt.Errorf("store: set article collection: %w", err)
	}
	return tx.Commit()
}

// ArticlesByCollection returns all articles linked to a collection.
func (s *Store) ArticlesByCollection(ctx context.Context, collectionID string) ([]*model.Article, error) {
	query := `
	SELECT a.id, a.feed_id, a.link, a.title, a.body, a.published_at, a.ingested_at, a.fingerprint,
	       a.review_state, a.tags, a.summary, a.confidence, a.model_id, a.degraded, COALESCE(a.collection_id, '')
	FROM articles a
	JOIN article_collections ac ON ac.article_id = a.id
	WHERE ac.collection_id = ?
	`
	rows, err := s.DB.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("store: articles by collection: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Article
	for rows.Next() {
		var a model.Article
		var published, ingested, state, tags string
		if err := rows.Scan(
			&a.ID, &a.FeedID, &a.Link, &a.Title, &a.Body, &published, &ingested, &a.Fingerprint,
			&state, &tags, &a.Summary, &a.Confidence, &a.ModelID, &a.Degraded, &a.CollectionID,
		); err != nil {
			return nil, err
		}
		a.PublishedAt = parseTime(published)
		a.IngestedAt = parseTime(ingested)
		a.ReviewState = model.ReviewState(state)
		a.Tags = unmarshalStrings(tags)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// CollectionArticleStats returns the article count and oldest ingest time
// of a collection. A zero time means the collection is empty.
func (s *Store) CollectionArticleStats(ctx context.Context, collectionID string) (count int, oldest time.Time, err error) {
	query := `
	SELECT COUNT(*), COALESCE(MIN(a.ingested_at), '')
	FROM articles a
	JOIN article_collections ac ON ac.article_id = a.id
	WHERE ac.collection_id = ?
	`
	var oldestStr string
	if err := s.DB.QueryRowContext(ctx, query, collectionID).Scan(&count, &oldestStr); err != nil {
		return 0, time.Time{}, fmt.Errorf("store: collection stats: %w", err)
	}
	return count, parseTime(oldestStr), nil
}
