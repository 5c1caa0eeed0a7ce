package scheduler

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	obligationdomain "github.com/duebook/duebook/internal/obligation/domain"
	obsmetrics "github.com/duebook/duebook/internal/observability/metrics"
	"go.uber.org/zap"
)

// StatusRefreshJob reconciles every still-open obligation's cached status
// with the resolver, writing only when the derivation has moved on.
func (s *Scheduler) StatusRefreshJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "status_refresh")
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	now := s.clock.Now()
	schedMetrics := obsmetrics.Scheduler()

	var (
		jobErr  error
		lastID  snowflake.ID
		updated int
	)

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		open, err := s.repo.ListOpen(ctx, lastID, s.cfg.BatchSize)
		if err != nil {
			s.log.Error("scheduler.status_refresh.list_failed", zap.Error(err))
			run.IncError()
			return errors.Join(jobErr, err)
		}
		if len(open) == 0 {
			break
		}
		lastID = open[len(open)-1].ID

		for _, o := range open {
			run.AddProcessed(1)
			schedMetrics.AddBatchProcessed("status_refresh", 1)

			resolved := obligationdomain.ResolveStatus(*o, now)
			if resolved == o.Status {
				continue
			}
			if err := s.repo.Update(ctx, o.ID, map[string]any{"status": resolved}); err != nil {
				run.IncError()
				jobErr = errors.Join(jobErr, err)
				s.log.Warn("scheduler.status_refresh.failed",
					zap.String("obligation_id", o.ID.String()),
					zap.Error(err),
				)
				continue
			}
			updated++
		}
	}

	s.log.Info("scheduler.status_refresh.done", zap.Int("updated", updated))
	return jobErr
}
