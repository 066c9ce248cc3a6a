// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/podops/overseer/internal/api"
	"github.com/podops/overseer/internal/cadence"
	"github.com/podops/overseer/internal/collab"
	"github.com/podops/overseer/internal/collection"
	"github.com/podops/overseer/internal/config"
	"github.com/podops/overseer/internal/dedup"
	"github.com/podops/overseer/internal/episode"
	"github.com/podops/overseer/internal/intake"
	"github.com/podops/overseer/internal/review"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

// TestAppShutdown wires the full daemon against in-process stores and
// verifies that cancelling the root context stops every subsystem.
func TestAppShutdown(t *testing.T) {
	defer goleak.VerifyNone(t,
		// The go-redis connection pool and database/sql keep background
		// goroutines for the life of the client.
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	client := state.NewFromRedis(rdb, zerolog.Nop())

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	cfg := config.FromEnv()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.PausePoll = 10 * time.Millisecond
	cfg.TickInterval = time.Hour
	cfg.SweepInterval = time.Hour

	queue := state.NewQueue(client, 16)
	manager := collection.NewManager(st, cfg.StalenessMax, zerolog.Nop())
	router := &review.Router{
		Queue:        queue,
		State:        client,
		Store:        st,
		Manager:      manager,
		Light:        collab.NewReviewer("http://127.0.0.1:1", time.Second),
		Heavy:        collab.NewReviewer("http://127.0.0.1:1", time.Second),
		PausePoll:    cfg.PausePoll,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Logger:       zerolog.Nop(),
	}
	pipeline := &episode.Pipeline{
		Store:             st,
		State:             client,
		Manager:           manager,
		GroupLockTTL:      cfg.GroupLockTTL,
		ProductionLockTTL: cfg.ProductionLockTTL,
		Logger:            zerolog.Nop(),
	}
	controller := &cadence.Controller{
		Store:        st,
		State:        client,
		Manager:      manager,
		Generator:    pipeline,
		TickInterval: cfg.TickInterval,
		Logger:       zerolog.Nop(),
	}

	app := &App{
		Config: cfg,
		APIServer: &api.Server{
			State: client,
			Store: st,
			Intake: &intake.Intake{
				Filter: dedup.New(client, cfg.DedupTTL, zerolog.Nop()),
				Store:  st,
				Queue:  queue,
				Logger: zerolog.Nop(),
			},
			Router:         router,
			Cadence:        controller,
			Generator:      pipeline,
			ManualPauseTTL: cfg.ManualPauseTTL,
			Logger:         zerolog.Nop(),
		},
		Router:  router,
		Cadence: controller,
		Sweeper: &collection.Sweeper{Manager: manager, TTL: cfg.CollectionTTL, Interval: cfg.SweepInterval},
		Logger:  zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	// Let every subsystem start before pulling the plug.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}
