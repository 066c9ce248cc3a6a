// SPDX-License-Identifier: MIT

package collab

import (
	"context"
	"time"
)

// PublishMetadata is the publish-facing episode description.
type PublishMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// PublishRequest is the wire request of POST /publish.
type PublishRequest struct {
	EpisodeID string          `json:"episode_id"`
	AudioURL  string          `json:"audio_url"`
	Metadata  PublishMetadata `json:"metadata"`
	Platforms []string        `json:"platforms"`
}

// PublishResult is one platform outcome.
type PublishResult struct {
	Platform string `json:"platform"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// PublishResponse is the wire response of POST /publish.
type PublishResponse struct {
	Results []PublishResult `json:"results"`
}

// Publisher pushes a voiced episode to external platforms. An empty result
// set is not an error; the episode simply stays retriable.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error)
}

// HTTPPublisher talks to the publishing service over HTTP JSON.
type HTTPPublisher struct {
	client      client
	hardTimeout time.Duration
}

// NewPublisher returns a publisher client with the given hard deadline.
func NewPublisher(baseURL string, hardTimeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{client: newClient(baseURL), hardTimeout: hardTimeout}
}

// Publish hands an episode to the publishing service.
func (p *HTTPPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error) {
	var resp PublishResponse
	if err := p.client.postJSON(ctx, "/publish", p.hardTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
