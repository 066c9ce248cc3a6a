// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReviewSettings is the runtime-mutable review configuration stored under
// reviewer:config. Changes take effect on the next request; workers read
// it per dequeue rather than caching.
type ReviewSettings struct {
	LightThreshold float64 `json:"light_threshold"`
	HeavyThreshold float64 `json:"heavy_threshold"`
	Workers        int     `json:"workers"`
	MinArticles    int     `json:"min_articles"`
}

// DefaultReviewSettings returns the documented defaults.
func DefaultReviewSettings() ReviewSettings {
	return ReviewSettings{
		LightThreshold: 0.4,
		HeavyThreshold: 0.7,
		Workers:        4,
		MinArticles:    3,
	}
}

// normalize clamps nonsense values back to defaults rather than failing.
func (s ReviewSettings) normalize() ReviewSettings {
	def := DefaultReviewSettings()
	if s.LightThreshold < 0 || s.LightThreshold > 1 {
		s.LightThreshold = def.LightThreshold
	}
	if s.HeavyThreshold < 0 || s.HeavyThreshold > 1 {
		s.HeavyThreshold = def.HeavyThreshold
	}
	if s.Workers <= 0 {
		s.Workers = def.Workers
	}
	if s.MinArticles <= 0 {
		s.MinArticles = def.MinArticles
	}
	return s
}

// ReviewSettings fetches the current settings, falling back to defaults
// when the blob is absent or the store is unreachable. A one-request
// staleness window is acceptable here.
func (c *Client) ReviewSettings(ctx context.Context) ReviewSettings {
	data, ok, err := c.Get(ctx, keyReviewConfig)
	if err != nil {
		c.logger.Warn().Err(err).Msg("review settings unavailable, using defaults")
		return DefaultReviewSettings()
	}
	if !ok {
		return DefaultReviewSettings()
	}
	var s ReviewSettings
	if err := json.Unmarshal(data, &s); err != nil {
		c.logger.Warn().Err(err).Msg("review settings corrupt, using defaults")
		return DefaultReviewSettings()
	}
	return s.normalize()
}

// UpdateReviewSettings persists new settings. The blob has no TTL.
func (c *Client) UpdateReviewSettings(ctx context.Context, s ReviewSettings) error {
	data, err := json.Marshal(s.normalize())
	if err != nil {
		return fmt.Errorf("state: marshal review settings: %w", err)
	}
	return c.Set(ctx, keyReviewConfig, data, 0)
}
