// SPDX-License-Identifier: MIT

// Command daemon runs the podcast orchestration core: article intake with
// deduplication, the two-tier review router, collection lifecycle, the
// cadence scheduler and the episode generation pipeline.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/podops/overseer/internal/api"
	"github.com/podops/overseer/internal/cadence"
	"github.com/podops/overseer/internal/collab"
	"github.com/podops/overseer/internal/collection"
	"github.com/podops/overseer/internal/config"
	"github.com/podops/overseer/internal/daemon"
	"github.com/podops/overseer/internal/dedup"
	"github.com/podops/overseer/internal/episode"
	"github.com/podops/overseer/internal/intake"
	"github.com/podops/overseer/internal/log"
	"github.com/podops/overseer/internal/review"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

func main() {
	log.Configure(log.Config{Service: "overseer"})
	logger := log.Base()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger := log.Base()

	fast, err := state.New(state.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log.WithComponent("state"))
	if err != nil {
		return err
	}
	defer func() { _ = fast.Close() }()

	durable, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = durable.Close() }()

	queue := state.NewQueue(fast, cfg.QueueCapacity)
	filter := dedup.New(fast, cfg.DedupTTL, log.WithComponent("dedup"))
	manager := collection.NewManager(durable, cfg.StalenessMax, log.WithComponent("collection"))

	router := &review.Router{
		Queue:           queue,
		State:           fast,
		Store:           durable,
		Manager:         manager,
		Light:           collab.NewReviewer(cfg.LightReviewerURL, cfg.LightHardTimeout),
		Heavy:           collab.NewReviewer(cfg.HeavyReviewerURL, cfg.HeavyHardTimeout),
		PausePoll:       cfg.PausePoll,
		LightSoftBudget: cfg.LightSoftTimeout,
		HeavySoftBudget: cfg.HeavySoftTimeout,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		Logger:          log.WithComponent("review"),
	}

	pipeline := &episode.Pipeline{
		Store:             durable,
		State:             fast,
		Manager:           manager,
		Writer:            collab.NewWriter(cfg.WriterURL, cfg.WriterTimeout, cfg.MetadataTimeout),
		Editor:            collab.NewEditor(cfg.EditorURL, cfg.EditorTimeout),
		Synthesizer:       collab.NewSynthesizer(cfg.TTSURL, cfg.TTSTimeout),
		Publisher:         collab.NewPublisher(cfg.PublisherURL, cfg.PublisherTimeout),
		GroupLockTTL:      cfg.GroupLockTTL,
		ProductionLockTTL: cfg.ProductionLockTTL,
		Platforms:         cfg.PublishPlatforms,
		Logger:            log.WithComponent("episode"),
	}

	controller := &cadence.Controller{
		Store:        durable,
		State:        fast,
		Manager:      manager,
		Generator:    pipeline,
		TickInterval: cfg.TickInterval,
		Logger:       log.WithComponent("cadence"),
	}

	app := &daemon.App{
		Config: cfg,
		APIServer: &api.Server{
			State: fast,
			Store: durable,
			Intake: &intake.Intake{
				Filter: filter,
				Store:  durable,
				Queue:  queue,
				Logger: log.WithComponent("intake"),
			},
			Router:         router,
			Cadence:        controller,
			Generator:      pipeline,
			ManualPauseTTL: cfg.ManualPauseTTL,
			Logger:         log.WithComponent("api"),
		},
		Router:  router,
		Cadence: controller,
		Sweeper: &collection.Sweeper{
			Manager:  manager,
			TTL:      cfg.CollectionTTL,
			Interval: cfg.SweepInterval,
		},
		Logger: logger,
	}

	ctx, cancel := daemon.SignalContext(context.Background())
	defer cancel()
	return app.Run(ctx)
}
