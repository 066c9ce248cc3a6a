// SPDX-License-Identifier: MIT

package collab

import (
	"context"
	"fmt"
	"time"
)

// ReviewRequest is the wire request of POST /review.
type ReviewRequest struct {
	ArticleID string       `json:"article_id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Hints     *ReviewHints `json:"hints,omitempty"`
}

// ReviewHints carries optional routing hints.
type ReviewHints struct {
	Escalate bool `json:"escalate,omitempty"`
}

// ReviewResponse is the wire response of POST /review.
type ReviewResponse struct {
	Tags       []string `json:"tags"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	ModelID    string   `json:"model_id"`
}

// Reviewer classifies and tags one article.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (*ReviewResponse, error)
}

// HTTPReviewer talks to a reviewer service over HTTP JSON.
type HTTPReviewer struct {
	client      client
	hardTimeout time.Duration
}

// NewReviewer returns a reviewer client with the given hard deadline.
func NewReviewer(baseURL string, hardTimeout time.Duration) *HTTPReviewer {
	return &HTTPReviewer{client: newClient(baseURL), hardTimeout: hardTimeout}
}

// Review submits one article for classification.
func (r *HTTPReviewer) Review(ctx context.Context, req ReviewRequest) (*ReviewResponse, error) {
	var resp ReviewResponse
	if err := r.client.postJSON(ctx, "/review", r.hardTimeout, req, &resp); err != nil {
		return nil, err
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %f out of range", ErrContract, resp.Confidence)
	}
	return &resp, nil
}
