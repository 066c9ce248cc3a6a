// SPDX-License-Identifier: MIT

// Package model provides the core entities of the podcast orchestration
// pipeline: articles, collections, groups, episodes and audio files.
//
// Entities reference each other by ID only; no object graphs cross
// subsystem boundaries.
package model

import "time"

// ReviewState represents the review lifecycle of an article.
//
// Once the state leaves ReviewUnreviewed it is terminal for that article;
// there is no re-review.
type ReviewState string

const (
	// ReviewUnreviewed indicates the article has not been routed yet.
	ReviewUnreviewed ReviewState = "unreviewed"

	// ReviewLight indicates the article was finalized by the light reviewer.
	ReviewLight ReviewState = "light"

	// ReviewHeavy indicates the article was finalized by the heavy reviewer.
	ReviewHeavy ReviewState = "heavy"

	// ReviewRejected indicates the article was permanently rejected.
	ReviewRejected ReviewState = "rejected"
)

// String returns the string representation of the review state.
func (s ReviewState) String() string {
	return string(s)
}

// IsValid checks whether the review state is one of the defined constants.
func (s ReviewState) IsValid() bool {
	switch s {
	case ReviewUnreviewed, ReviewLight, ReviewHeavy, ReviewRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the review state is final.
func (s ReviewState) IsTerminal() bool {
	return s != ReviewUnreviewed
}

// Article is a single ingested news article.
type Article struct {
	ID          string
	FeedID      string
	Link        string
	Title       string
	Body        string
	PublishedAt time.Time
	IngestedAt  time.Time

	// Fingerprint is the hex SHA-256 over the normalized title and body.
	// Unique within the dedup TTL window.
	Fingerprint string

	ReviewState ReviewState
	Tags        []string
	Summary     string
	Confidence  float64
	ModelID     string
	Degraded    bool

	// CollectionID is the first collection the article was assigned to.
	// Set at most once; the article_collections link table is authoritative
	// for multi-group membership.
	CollectionID string
}
