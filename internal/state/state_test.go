// SPDX-License-Identifier: MIT

package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromRedis(rdb, zerolog.Nop()), mr
}

func TestSetIfAbsent(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.SetIfAbsent(ctx, "k", []byte("v1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetIfAbsent(ctx, "k", []byte("v2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v1"), val)

	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestClient(t)
	val, found, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestErrUnavailableWrapping(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)

	err = c.Set(context.Background(), "k", []byte("v"), 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGroupLock(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireGroupLock(ctx, "g1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquisition fails while held.
	ok, err = c.AcquireGroupLock(ctx, "g1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := c.GroupLockHeld(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, held)

	// Locks are per group.
	ok, err = c.AcquireGroupLock(ctx, "g2", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ReleaseGroupLock(ctx, "g1"))
	held, err = c.GroupLockHeld(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, held)

	ok, err = c.AcquireGroupLock(ctx, "g1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGroupLockTTLExpiry(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireGroupLock(ctx, "g1", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Hour)

	ok, err = c.AcquireGroupLock(ctx, "g1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock must be acquirable again")
}

func TestProductionLockLifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	lock, err := c.InspectProductionLock(ctx)
	require.NoError(t, err)
	assert.Nil(t, lock)

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, c.SetProductionLock(ctx, ProductionLock{
		GroupID:   "g1",
		EpisodeID: "e1",
		StartedAt: started,
	}, time.Hour))

	lock, err = c.InspectProductionLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.Equal(t, "g1", lock.GroupID)
	assert.Equal(t, "e1", lock.EpisodeID)
	assert.False(t, lock.Manual)

	require.NoError(t, c.ClearProductionLock(ctx, false))
	lock, err = c.InspectProductionLock(ctx)
	require.NoError(t, err)
	assert.Nil(t, lock)
}

func TestManualPauseSurvivesNonForcedClear(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetProductionLock(ctx, ProductionLock{Manual: true}, time.Hour))

	// A pipeline-style clear must not release an operator pause.
	require.NoError(t, c.ClearProductionLock(ctx, false))
	lock, err := c.InspectProductionLock(ctx)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.True(t, lock.Manual)

	// A forced clear (operator resume) does.
	require.NoError(t, c.ClearProductionLock(ctx, true))
	lock, err = c.InspectProductionLock(ctx)
	require.NoError(t, err)
	assert.Nil(t, lock)
}

func TestReviewSettingsDefaults(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	s := c.ReviewSettings(ctx)
	assert.InDelta(t, 0.4, s.LightThreshold, 1e-9)
	assert.InDelta(t, 0.7, s.HeavyThreshold, 1e-9)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, 3, s.MinArticles)
}

func TestReviewSettingsUpdateAndNormalize(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.UpdateReviewSettings(ctx, ReviewSettings{
		LightThreshold: 0.55,
		HeavyThreshold: 0.9,
		Workers:        8,
		MinArticles:    2,
	}))
	s := c.ReviewSettings(ctx)
	assert.InDelta(t, 0.55, s.LightThreshold, 1e-9)
	assert.InDelta(t, 0.9, s.HeavyThreshold, 1e-9)
	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, 2, s.MinArticles)

	// Out-of-range values clamp back to defaults on write.
	require.NoError(t, c.UpdateReviewSettings(ctx, ReviewSettings{
		LightThreshold: 1.5,
		HeavyThreshold: -0.1,
		Workers:        0,
		MinArticles:    -3,
	}))
	s = c.ReviewSettings(ctx)
	assert.InDelta(t, 0.4, s.LightThreshold, 1e-9)
	assert.InDelta(t, 0.7, s.HeavyThreshold, 1e-9)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, 3, s.MinArticles)
}

func TestReviewSettingsFallBackWhenStoreDown(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Close()

	s := c.ReviewSettings(context.Background())
	assert.Equal(t, DefaultReviewSettings(), s)
}

func TestFingerprints(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	added, err := c.AddFingerprint(ctx, "abc123", time.Hour)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = c.AddFingerprint(ctx, "abc123", time.Hour)
	require.NoError(t, err)
	assert.False(t, added)

	has, err := c.HasFingerprint(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, has)

	mr.FastForward(2 * time.Hour)
	has, err = c.HasFingerprint(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPendingApology(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	pending, err := c.PendingApology(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, c.SetPendingApology(ctx, "g1"))
	pending, err = c.PendingApology(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, pending)

	// Flags are per group.
	pending, err = c.PendingApology(ctx, "g2")
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, c.ConsumePendingApology(ctx, "g1"))
	pending, err = c.PendingApology(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, pending)
}
