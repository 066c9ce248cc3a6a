// SPDX-License-Identifier: MIT

// Package api exposes the admin and intake surface of the orchestration
// core: inspect endpoints for cadence, production and review state, the
// runtime config mutation, and the article intake route.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/podops/overseer/internal/cadence"
	"github.com/podops/overseer/internal/intake"
	"github.com/podops/overseer/internal/log"
	"github.com/podops/overseer/internal/review"
	"github.com/podops/overseer/internal/state"
	"github.com/podops/overseer/internal/store"
)

// Server wires the HTTP surface over the core subsystems.
type Server struct {
	State     *state.Client
	Store     *store.Store
	Intake    *intake.Intake
	Router    *review.Router
	Cadence   *cadence.Controller
	Generator cadence.Generator

	ManualPauseTTL time.Duration
	Logger         zerolog.Logger
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/cadence", s.handleCadenceStatus)
		r.Get("/production", s.handleProductionStatus)
		r.Post("/production/pause", s.handleProductionPause)
		r.Post("/production/resume", s.handleProductionResume)
		r.Get("/review/metrics", s.handleReviewMetrics)
		r.Put("/config/review", s.handleConfigUpdate)
		r.Get("/collections/stats", s.handleCollectionStats)
		r.Put("/groups", s.handleGroupUpsert)
		r.Post("/groups/{groupID}/generate", s.handleGenerate)

		r.Group(func(r chi.Router) {
			// Intake backpressure starts at the rate limiter; the bounded
			// queue blocks anything that gets past it.
			r.Use(httprate.LimitByIP(120, time.Minute))
			r.Post("/articles", s.handleArticleSubmit)
		})
	})

	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.Logger.Info().Str("addr", addr).Msg("api server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(w, r.WithContext(log.ContextWithRequestID(r.Context(), rid)))
	})
}
