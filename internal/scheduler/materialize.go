package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	obligationdomain "github.com/duebook/duebook/internal/obligation/domain"
	obsmetrics "github.com/duebook/duebook/internal/observability/metrics"
	"go.uber.org/zap"
)

// Skip reasons emitted as structured events and metric labels.
const (
	skipReasonAlreadyGenerated = "already_generated"
	skipReasonBeyondHorizon    = "beyond_horizon"
	skipReasonTemplateExpired  = "template_expired"
	skipReasonClientInactive   = "client_inactive"
	skipReasonDuplicateRace    = "duplicate_race"
)

// Report tallies one materialization tick.
type Report struct {
	Generated int
	Skipped   int
	Failed    int
}

// MaterializeJob walks every active template and creates the next due
// instance when it is inside the horizon. Per-template failures are
// isolated: one broken template never blocks the rest of the batch.
func (s *Scheduler) MaterializeJob(ctx context.Context) error {
	_, err := s.MaterializeOnce(ctx)
	return err
}

// MaterializeOnce runs a single materialization pass and reports counts.
// Re-running it with no intervening state change generates nothing new.
func (s *Scheduler) MaterializeOnce(ctx context.Context) (Report, error) {
	ctx, run, owner := s.ensureJobRun(ctx, "materialize")
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	now := s.clock.Now()
	schedMetrics := obsmetrics.Scheduler()

	var (
		report Report
		jobErr error
		lastID snowflake.ID
	)

	for {
		if ctx.Err() != nil {
			return report, errors.Join(jobErr, ctx.Err())
		}

		templates, err := s.repo.ListActiveTemplates(ctx, now, lastID, s.cfg.BatchSize)
		if err != nil {
			// Listing is the tick's foundation: abort and retry on the
			// next scheduled invocation.
			s.log.Error("scheduler.materialize.list_failed", zap.Error(err))
			run.IncError()
			return report, errors.Join(jobErr, err)
		}
		if len(templates) == 0 {
			break
		}
		lastID = templates[len(templates)-1].ID

		for _, tpl := range templates {
			outcome, reason, err := s.materializeTemplate(ctx, tpl, now)
			run.AddProcessed(1)
			schedMetrics.AddBatchProcessed("materialize", 1)
			schedMetrics.IncTemplateOutcome(outcome, reason)

			fields := []zap.Field{
				zap.String("template_id", tpl.ID.String()),
				zap.String("org_id", tpl.OrgID.String()),
			}
			switch outcome {
			case "generated":
				report.Generated++
				s.log.Info("scheduler.template.generated", fields...)
			case "skipped":
				report.Skipped++
				s.log.Info("scheduler.template.skipped", append(fields, zap.String("reason", reason))...)
			case "failed":
				report.Failed++
				run.IncError()
				jobErr = errors.Join(jobErr, err)
				s.log.Warn("scheduler.template.failed", append(fields, zap.Error(err))...)
			}
		}
	}

	s.log.Info("scheduler.materialize.done",
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, jobErr
}

func (s *Scheduler) materializeTemplate(ctx context.Context, tpl *obligationdomain.Obligation, now time.Time) (outcome, reason string, err error) {
	reference := tpl.DueDate
	latest, err := s.repo.LatestInstance(ctx, tpl.ID)
	if err != nil {
		return "failed", "", err
	}
	if latest != nil {
		reference = latest.DueDate
	}

	candidate, err := obligationdomain.NextDueDate(reference, tpl.Frequency, tpl.RecurringDayOfMonth)
	if err != nil {
		// Unknown frequency is a contract violation on the template; it
		// fails this template only.
		return "failed", "", err
	}

	// Fast-path idempotency check; the unique index remains the
	// correctness mechanism for racing runs.
	existing, err := s.repo.FindInstance(ctx, tpl.ID, candidate)
	if err != nil {
		return "failed", "", err
	}
	if existing != nil {
		return "skipped", skipReasonAlreadyGenerated, nil
	}

	if candidate.After(obligationdomain.StartOfDay(now).Add(s.cfg.Horizon)) {
		return "skipped", skipReasonBeyondHorizon, nil
	}

	if tpl.RecurringEndDate != nil && candidate.After(*tpl.RecurringEndDate) {
		// Terminal action: the template stops producing instances.
		if err := s.repo.Update(ctx, tpl.ID, map[string]any{"is_recurring": false}); err != nil {
			return "failed", "", err
		}
		return "skipped", skipReasonTemplateExpired, nil
	}

	if tpl.ClientID != nil {
		active, err := s.tenantSvc.IsClientActive(ctx, tpl.OrgID, *tpl.ClientID)
		if err != nil {
			return "failed", "", err
		}
		if !active {
			// Soft-deleted clients may be restored; skip without
			// deactivating.
			return "skipped", skipReasonClientInactive, nil
		}
	}

	instance := s.buildInstance(tpl, candidate, now)
	if err := s.repo.CreateInstance(ctx, instance); err != nil {
		if errors.Is(err, obligationdomain.ErrDuplicateInstance) {
			// Lost a race with an overlapping run; the occurrence exists.
			return "skipped", skipReasonDuplicateRace, nil
		}
		return "failed", "", err
	}
	return "generated", "", nil
}

func (s *Scheduler) buildInstance(tpl *obligationdomain.Obligation, dueDate, now time.Time) *obligationdomain.Obligation {
	parentID := tpl.ID
	notes := tpl.Notes
	if notes != "" {
		notes += "\n"
	}
	notes += "Generated automatically from recurring schedule on " + now.Format("2006-01-02")

	instance := &obligationdomain.Obligation{
		ID:       s.genID.Generate(),
		OrgID:    tpl.OrgID,
		ClientID: tpl.ClientID,

		Title:         tpl.Title,
		Amount:        tpl.Amount,
		DueDate:       dueDate,
		PaymentMethod: tpl.PaymentMethod,
		Notes:         notes,

		ParentID:        &parentID,
		RequiresInvoice: tpl.RequiresInvoice,
	}
	instance.Status = obligationdomain.ResolveStatus(*instance, now)
	return instance
}
