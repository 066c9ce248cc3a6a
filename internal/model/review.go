// SPDX-License-Identifier: MIT

package model

// ReviewTier identifies which reviewer finalized an article.
type ReviewTier string

const (
	// TierLight is the cheap small-model reviewer.
	TierLight ReviewTier = "light"

	// TierHeavy is the expensive large-model reviewer.
	TierHeavy ReviewTier = "heavy"
)

// ReviewRequest is one unit of work on the review queue.
type ReviewRequest struct {
	ArticleID string            `json:"article_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Hints     map[string]string `json:"hints,omitempty"`
}

// Escalate reports whether the request carries an escalate hint, which
// forces the heavy tier regardless of light confidence.
func (r ReviewRequest) Escalate() bool {
	return r.Hints["escalate"] == "true"
}

// ReviewResult is the outcome of routing one article.
type ReviewResult struct {
	Tags       []string   `json:"tags"`
	Summary    string     `json:"summary"`
	Confidence float64    `json:"confidence"`
	Tier       ReviewTier `json:"tier"`
	ModelID    string     `json:"model_id"`
	Degraded   bool       `json:"degraded"`
}
