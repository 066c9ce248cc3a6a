// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"time"
)

// AddFingerprint inserts a content fingerprint conditional-on-absent with
// the given TTL. Returns true when the fingerprint was new. Each entry is
// a dedicated key so TTL applies per fingerprint.
func (c *Client) AddFingerprint(ctx context.Context, hexFingerprint string, ttl time.Duration) (bool, error) {
	return c.SetIfAbsent(ctx, keyFingerprintPrefix+hexFingerprint, []byte("1"), ttl)
}

// HasFingerprint reports whether a fingerprint is currently present.
// Read-only; used by admin inspection.
func (c *Client) HasFingerprint(ctx context.Context, hexFingerprint string) (bool, error) {
	_, ok, err := c.Get(ctx, keyFingerprintPrefix+hexFingerprint)
	return ok, err
}
