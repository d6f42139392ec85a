package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/pkg/cache"
)

const (
	sweepTimeout = 2 * time.Minute
	resweepBatch = 100
)

// Sweeper runs the background maintenance passes: expiring stale leads and
// re-running allocation for verified leads that still have open slots.
type Sweeper struct {
	leads    *lead.Repository
	engine   *allocation.Engine
	listings *cache.ListingCache
	logger   *zap.Logger
}

func NewSweeper(leads *lead.Repository, engine *allocation.Engine, listings *cache.ListingCache, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		leads:    leads,
		engine:   engine,
		listings: listings,
		logger:   logger,
	}
}

// Schedule registers both sweeps on the given cron runner. The caller owns
// Start/Stop.
func (s *Sweeper) Schedule(c *cron.Cron, expireSpec, resweepSpec string) error {
	if _, err := c.AddFunc(expireSpec, s.runExpire); err != nil {
		return err
	}
	if _, err := c.AddFunc(resweepSpec, s.runResweep); err != nil {
		return err
	}
	return nil
}

func (s *Sweeper) runExpire() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expiry sweep done", zap.Int64("expired", n))
	}
}

func (s *Sweeper) runResweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	filled, err := s.ResweepUnfilled(ctx)
	if err != nil {
		s.logger.Error("re-allocation sweep failed", zap.Error(err))
		return
	}
	if filled > 0 {
		s.logger.Info("re-allocation sweep done", zap.Int("new_assignments", filled))
	}
}

// ExpireStale moves leads past their expiry out of circulation and returns the
// count. The listing cache is dropped when anything changed.
func (s *Sweeper) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.leads.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := s.listings.Invalidate(ctx); err != nil {
			s.logger.Warn("listing cache invalidation failed", zap.Error(err))
		}
	}
	return n, nil
}

// ResweepUnfilled retries allocation for verified leads with open slots,
// catching leads whose first pass found no eligible providers. Returns the
// total number of new assignments across the batch.
func (s *Sweeper) ResweepUnfilled(ctx context.Context) (int, error) {
	leads, err := s.leads.ListUnfilled(ctx, time.Now(), resweepBatch)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range leads {
		res, err := s.engine.Allocate(ctx, leads[i].ID)
		if err != nil {
			// The lead may have filled or expired between listing and the
			// allocation pass; that is not a sweep failure.
			if errors.Is(err, allocation.ErrNotMatchable) || errors.Is(err, lead.ErrLeadNotFound) {
				continue
			}
			s.logger.Warn("re-allocation failed for lead",
				zap.String("lead_id", leads[i].ID.String()), zap.Error(err))
			continue
		}
		created += len(res.Created)
	}

	if created > 0 {
		if err := s.listings.Invalidate(ctx); err != nil {
			s.logger.Warn("listing cache invalidation failed", zap.Error(err))
		}
	}
	return created, nil
}
