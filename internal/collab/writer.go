// SPDX-License-Identifier: MIT

package collab

import (
	"context"
	"fmt"
	"time"
)

// ScriptArticle is one article summary handed to the writer.
type ScriptArticle struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Body    string `json:"body"`
}

// ScriptRequest is the wire request of POST /script.
type ScriptRequest struct {
	SnapshotID    string          `json:"snapshot_id"`
	Articles      []ScriptArticle `json:"articles"`
	Presenters    []string        `json:"presenters"`
	WriterProfile string          `json:"writer_profile"`
	TargetMinutes int             `json:"target_minutes"`
}

// ScriptResponse is the wire response of POST /script.
type ScriptResponse struct {
	Script string `json:"script"`
}

// MetadataRequest is the wire request of POST /metadata.
type MetadataRequest struct {
	EpisodeID string `json:"episode_id"`
	Script    string `json:"script"`
}

// MetadataResponse is the wire response of POST /metadata.
type MetadataResponse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Writer generates episode scripts and publish metadata.
type Writer interface {
	Script(ctx context.Context, req ScriptRequest) (*ScriptResponse, error)
	Metadata(ctx context.Context, req MetadataRequest) (*MetadataResponse, error)
}

// HTTPWriter talks to the writer service over HTTP JSON.
type HTTPWriter struct {
	client          client
	scriptTimeout   time.Duration
	metadataTimeout time.Duration
}

// NewWriter returns a writer client with per-operation hard deadlines.
func NewWriter(baseURL string, scriptTimeout, metadataTimeout time.Duration) *HTTPWriter {
	return &HTTPWriter{
		client:          newClient(baseURL),
		scriptTimeout:   scriptTimeout,
		metadataTimeout: metadataTimeout,
	}
}

// Script asks the writer for a full episode script.
func (w *HTTPWriter) Script(ctx context.Context, req ScriptRequest) (*ScriptResponse, error) {
	var resp ScriptResponse
	if err := w.client.postJSON(ctx, "/script", w.scriptTimeout, req, &resp); err != nil {
		return nil, err
	}
	if resp.Script == "" {
		return nil, fmt.Errorf("%w: writer returned empty script", ErrContract)
	}
	return &resp, nil
}

// Metadata asks the writer for title, description and tags.
func (w *HTTPWriter) Metadata(ctx context.Context, req MetadataRequest) (*MetadataResponse, error) {
	var resp MetadataResponse
	if err := w.client.postJSON(ctx, "/metadata", w.metadataTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
