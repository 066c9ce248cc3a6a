// SPDX-License-Identifier: MIT

package collection

import (
	"context"
	"time"

	"github.com/podops/overseer/internal/metrics"
)

// Sweeper periodically expires empty stale building collections. Non-empty
// stale collections are left alone; only the cadence controller may decide
// what happens to real content.
type Sweeper struct {
	Manager  *Manager
	TTL      time.Duration
	Interval time.Duration
}

// Run blocks until ctx is cancelled, sweeping every interval.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.TTL)
	n, err := s.Manager.store.ExpireEmptyCollections(ctx, cutoff)
	if err != nil {
		s.Manager.logger.Error().Err(err).Msg("collection sweep failed")
		return
	}
	if n > 0 {
		for i := 0; i < n; i++ {
			metrics.IncCollectionsSwept()
		}
		s.Manager.logger.Info().Int("expired", n).Msg("swept empty stale collections")
	}
}
