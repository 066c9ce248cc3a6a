// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GroupLockKey returns the fast-store key of a group's generation lock.
func GroupLockKey(groupID string) string {
	return keyGroupLockPrefix + groupID + keyGroupLockSuffix
}

// AcquireGroupLock takes the per-group generation lock via set-if-absent.
// The stored value is the acquisition timestamp. Returns false when the
// lock is already held.
func (c *Client) AcquireGroupLock(ctx context.Context, groupID string, ttl time.Duration) (bool, error) {
	value := []byte(time.Now().UTC().Format(time.RFC3339))
	return c.SetIfAbsent(ctx, GroupLockKey(groupID), value, ttl)
}

// ReleaseGroupLock drops the per-group generation lock.
func (c *Client) ReleaseGroupLock(ctx context.Context, groupID string) error {
	return c.Delete(ctx, GroupLockKey(groupID))
}

// GroupLockHeld reports whether the group's generation lock is set.
func (c *Client) GroupLockHeld(ctx context.Context, groupID string) (bool, error) {
	_, ok, err := c.Get(ctx, GroupLockKey(groupID))
	return ok, err
}

// ProductionLock is the singleton pause signal written by the episode
// pipeline and read by review workers and admin endpoints.
type ProductionLock struct {
	GroupID   string    `json:"group_id"`
	EpisodeID string    `json:"episode_id"`
	StartedAt time.Time `json:"started_at"`

	// Manual marks an operator-held pause. Pipeline completion must not
	// release a manual pause.
	Manual bool `json:"manual,omitempty"`
}

// SetProductionLock writes the singleton production lock with the given TTL.
// It overwrites any existing value; the pipeline is already serialized per
// group so the only competing writer is an operator pause.
func (c *Client) SetProductionLock(ctx context.Context, lock ProductionLock, ttl time.Duration) error {
	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("state: marshal production lock: %w", err)
	}
	return c.Set(ctx, keyProductionLock, data, ttl)
}

// InspectProductionLock returns the current production lock, if any.
func (c *Client) InspectProductionLock(ctx context.Context) (*ProductionLock, error) {
	data, ok, err := c.Get(ctx, keyProductionLock)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var lock ProductionLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("state: unmarshal production lock: %w", err)
	}
	return &lock, nil
}

// ClearProductionLock removes the production lock unless it is a manual
// pause and force is false.
func (c *Client) ClearProductionLock(ctx context.Context, force bool) error {
	if !force {
		lock, err := c.InspectProductionLock(ctx)
		if err != nil {
			return err
		}
		if lock != nil && lock.Manual {
			return nil
		}
	}
	return c.Delete(ctx, keyProductionLock)
}
