// SPDX-License-Identifier: MIT

package state

import "context"

func apologyKey(groupID string) string {
	return keyGroupLockPrefix + groupID + ":apology"
}

// SetPendingApology records that a group skipped an empty weekly window.
// The flag is consumed by the next successful episode.
func (c *Client) SetPendingApology(ctx context.Context, groupID string) error {
	return c.Set(ctx, apologyKey(groupID), []byte("1"), 0)
}

// PendingApology reports whether the group has an unconsumed apology flag.
func (c *Client) PendingApology(ctx context.Context, groupID string) (bool, error) {
	_, ok, err := c.Get(ctx, apologyKey(groupID))
	return ok, err
}

// ConsumePendingApology clears the flag.
func (c *Client) ConsumePendingApology(ctx context.Context, groupID string) error {
	return c.Delete(ctx, apologyKey(groupID))
}
