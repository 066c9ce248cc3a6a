// SPDX-License-Identifier: MIT

// Package intake is the entry point for ingested articles: dedup check,
// durable insert, review enqueue. RSS fetching and extraction happen
// upstream; this package starts at a fully extracted article.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/podops/overseer/internal/dedup"
	"github.com/podops/overseer/internal/model"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

// ErrDuplicate means the article fingerprint was seen within the TTL
// window.
var ErrDuplicate = errors.New("intake: duplicate article")

// Submission is one extracted article offered to the pipeline.
type Submission struct {
	FeedID      string            `json:"feed_id"`
	Link        string            `json:"link"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	PublishedAt time.Time         `json:"published_at"`
	Hints       map[string]string `json:"hints,omitempty"`
}

// Intake accepts articles and feeds the review queue.
type Intake struct {
	Filter *dedup.Filter
	Store  *store.Store
	Queue  *state.Queue
	Logger zerolog.Logger
}

// Submit runs the dedup gate, persists the article and enqueues it for
// review. Blocks while the review queue is full (backpressure). Returns
// the new article ID.
func (i *Intake) Submit(ctx context.Context, sub Submission) (string, error) {
	if sub.Title == "" && sub.Body == "" {
		return "", fmt.Errorf("intake: empty article")
	}

	decision, fingerprint := i.Filter.Accept(ctx, sub.Title, sub.Body)
	if decision == dedup.Duplicate {
		return "", ErrDuplicate
	}

	article := &model.Article{
		ID:          uuid.NewString(),
		FeedID:      sub.FeedID,
		Link:        sub.Link,
		Title:       sub.Title,
		Body:        sub.Body,
		PublishedAt: sub.PublishedAt,
		IngestedAt:  time.Now().UTC(),
		Fingerprint: fingerprint,
		ReviewState: model.ReviewUnreviewed,
	}
	if err := i.Store.InsertArticle(ctx, article); err != nil {
		return "", err
	}

	if err := i.Queue.Push(ctx, model.ReviewRequest{
		ArticleID: article.ID,
		Title:     sub.Title,
		Body:      sub.Body,
		Hints:     sub.Hints,
	}); err != nil {
		return "", fmt.Errorf("intake: enqueue: %w", err)
	}

	i.Logger.Debug().Str("article_id", article.ID).Str("feed_id", sub.FeedID).Msg("article accepted")
	return article.ID, nil
}
