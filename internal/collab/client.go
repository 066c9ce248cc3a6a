// SPDX-License-Identifier: MIT

// Package collab holds the HTTP JSON clients for the external
// collaborators: reviewers, writer, editor, speech synthesis and
// publisher. Each collaborator is a narrow capability interface so tests
// can substitute in-memory fakes.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTransient marks a collaborator timeout or 5xx. Callers retry once
// with a one-second backoff, then surface.
var ErrTransient = errors.New("collab: transient failure")

// ErrContract marks a malformed request or response. Never retried.
var ErrContract = errors.New("collab: contract violation")

// retryBackoff is the pause before the single transient retry.
var retryBackoff = time.Second

// client is the shared JSON POST helper under every collaborator.
type client struct {
	baseURL string
	hc      *http.Client
}

func newClient(baseURL string) client {
	return client{
		baseURL: baseURL,
		// Per-call deadlines come from the context; the transport timeout
		// is only a safety net for dialing.
		hc: &http.Client{},
	}
}

// postJSON sends one request with the hard deadline applied and a single
// retry on transient failure.
func (c client) postJSON(ctx context.Context, path string, hardTimeout time.Duration, reqBody, respBody any) error {
	err := c.postOnce(ctx, path, hardTimeout, reqBody, respBody)
	if err == nil || !errors.Is(err, ErrTransient) {
		return err
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
	case <-time.After(retryBackoff):
	}
	return c.postOnce(ctx, path, hardTimeout, reqBody, respBody)
}

func (c client) postOnce(ctx context.Context, path string, hardTimeout time.Duration, reqBody, respBody any) error {
	callCtx, cancel := context.WithTimeout(ctx, hardTimeout)
	defer cancel()

	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrContract, err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrContract, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransient, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", ErrTransient, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s returned %d", ErrContract, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrContract, err)
	}
	return nil
}
