// SPDX-License-Identifier: MIT

package collab

import (
	"context"
	"time"
)

// EditContext gives the editor group-level context for the pass.
type EditContext struct {
	GroupName     string `json:"group_name"`
	TargetMinutes int    `json:"target_minutes"`
}

// EditRequest is the wire request of POST /edit.
type EditRequest struct {
	Script  string      `json:"script"`
	Context EditContext `json:"context"`
}

// EditResponse is the wire response of POST /edit.
type EditResponse struct {
	EditedScript string `json:"edited_script"`
	Notes        string `json:"notes,omitempty"`
}

// Editor performs the second-pass polish on a script.
type Editor interface {
	Edit(ctx context.Context, req EditRequest) (*EditResponse, error)
}

// HTTPEditor talks to the editor service over HTTP JSON.
type HTTPEditor struct {
	client      client
	hardTimeout time.Duration
}

// NewEditor returns an editor client with the given hard deadline.
func NewEditor(baseURL string, hardTimeout time.Duration) *HTTPEditor {
	return &HTTPEditor{client: newClient(baseURL), hardTimeout: hardTimeout}
}

// Edit submits a script for the edit pass.
func (e *HTTPEditor) Edit(ctx context.Context, req EditRequest) (*EditResponse, error) {
	var resp EditResponse
	if err := e.client.postJSON(ctx, "/edit", e.hardTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
