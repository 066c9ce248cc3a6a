// SPDX-License-Identifier: MIT

// Package daemon owns the long-lived runtime lifecycle: the API server,
// the review worker pool, the cadence tick loop and the collection
// sweeper, all under one errgroup.
package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/podops/overseer/internal/api"
	"github.com/podops/overseer/internal/cadence"
	"github.com/podops/overseer/internal/collection"
	"github.com/podops/overseer/internal/config"
	"github.com/podops/overseer/internal/review"
)

// App bundles the background subsystems of the orchestration core.
type App struct {
	Config    config.Config
	APIServer *api.Server
	Router    *review.Router
	Cadence   *cadence.Controller
	Sweeper   *collection.Sweeper
	Logger    zerolog.Logger
}

// Run starts all subsystems and blocks until ctx is cancelled or a fatal
// error occurs.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.APIServer.Run(ctx, a.Config.ListenAddr)
	})
	g.Go(func() error {
		return a.Router.Run(ctx)
	})
	g.Go(func() error {
		return a.Cadence.Run(ctx)
	})
	g.Go(func() error {
		return a.Sweeper.Run(ctx)
	})

	a.Logger.Info().Msg("daemon running")
	return g.Wait()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
