package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bwmarrin/snowflake"
	"github.com/duebook/duebook/internal/config"
	entitlementdomain "github.com/duebook/duebook/internal/entitlement/domain"
	plandomain "github.com/duebook/duebook/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxUpgradeSuggestions = 3

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	PlanRepo  plandomain.Repository
	Counter   entitlementdomain.Counter
	LimitsCfg *config.LimitsConfigHolder
}

type Service struct {
	log       *zap.Logger
	planRepo  plandomain.Repository
	counter   entitlementdomain.Counter
	limitsCfg *config.LimitsConfigHolder
}

func NewService(p ServiceParam) entitlementdomain.Service {
	return &Service{
		log:       p.Log.Named("entitlement.service"),
		planRepo:  p.PlanRepo,
		counter:   p.Counter,
		limitsCfg: p.LimitsCfg,
	}
}

func (s *Service) Check(ctx context.Context, orgID, clientID snowflake.ID, kind entitlementdomain.ResourceKind) (entitlementdomain.CheckResult, error) {
	limit, plan, err := s.resolveLimit(ctx, orgID, clientID, kind)
	if err != nil {
		return entitlementdomain.CheckResult{}, err
	}

	if limit == plandomain.UnlimitedLimit {
		return entitlementdomain.CheckResult{
			Allowed: true,
			Usage:   entitlementdomain.Usage{Current: 0, Limit: limit, Unlimited: true},
		}, nil
	}

	current, err := s.counter.Count(ctx, orgID, clientID, kind)
	if err != nil {
		return entitlementdomain.CheckResult{}, err
	}

	usage := entitlementdomain.Usage{
		Current:    current,
		Limit:      limit,
		Percentage: usagePercentage(current, limit),
	}

	// The ceiling is exclusive: reaching the limit blocks the next
	// creation, it never invalidates existing resources.
	if current < limit {
		return entitlementdomain.CheckResult{Allowed: true, Usage: usage}, nil
	}

	result := entitlementdomain.CheckResult{
		Allowed: false,
		Usage:   usage,
		Message: fmt.Sprintf("plan limit reached for %s (%d of %d used)", kind, current, limit),
	}
	if plan != nil {
		suggestions, err := s.upgradeSuggestions(ctx, *plan)
		if err != nil {
			// Suggestions are advisory: a failed lookup must not turn a
			// clean denial into an error.
			s.log.Warn("upgrade suggestion lookup failed",
				zap.String("org_id", orgID.String()),
				zap.String("client_id", clientID.String()),
				zap.Error(err),
			)
		} else {
			result.Suggestions = suggestions
		}
	}
	return result, nil
}

func (s *Service) resolveLimit(ctx context.Context, orgID, clientID snowflake.ID, kind entitlementdomain.ResourceKind) (int64, *plandomain.Plan, error) {
	plan, err := s.planRepo.ActivePlanForClient(ctx, orgID, clientID)
	if err != nil {
		if errors.Is(err, plandomain.ErrNoActivePlan) {
			// Fall back to the conservative default ceiling set rather
			// than failing open.
			limit, fallbackErr := fallbackLimit(s.limitsCfg.Current(), kind)
			return limit, nil, fallbackErr
		}
		return 0, nil, err
	}

	limit, err := planLimit(*plan, kind)
	if err != nil {
		return 0, nil, err
	}
	return limit, plan, nil
}

func (s *Service) upgradeSuggestions(ctx context.Context, current plandomain.Plan) ([]entitlementdomain.PlanSuggestion, error) {
	candidates, err := s.planRepo.UpgradeCandidates(ctx, current, maxUpgradeSuggestions)
	if err != nil {
		return nil, err
	}

	suggestions := make([]entitlementdomain.PlanSuggestion, 0, len(candidates))
	for _, candidate := range candidates {
		suggestions = append(suggestions, entitlementdomain.PlanSuggestion{
			PlanID:       candidate.ID,
			Code:         candidate.Code,
			Name:         candidate.Name,
			MonthlyPrice: candidate.MonthlyPrice,
			Currency:     candidate.Currency,
		})
	}
	return suggestions, nil
}

func planLimit(plan plandomain.Plan, kind entitlementdomain.ResourceKind) (int64, error) {
	switch kind {
	case entitlementdomain.ResourceObligations:
		return plan.MaxObligations, nil
	case entitlementdomain.ResourceDocuments:
		return plan.MaxDocuments, nil
	case entitlementdomain.ResourceExpenseRecords:
		return plan.MaxExpenseRecords, nil
	case entitlementdomain.ResourceStorageMB:
		return plan.MaxStorageMB, nil
	default:
		return 0, entitlementdomain.ErrUnknownResourceKind
	}
}

func fallbackLimit(cfg config.LimitsConfig, kind entitlementdomain.ResourceKind) (int64, error) {
	switch kind {
	case entitlementdomain.ResourceObligations:
		return cfg.MaxObligations, nil
	case entitlementdomain.ResourceDocuments:
		return cfg.MaxDocuments, nil
	case entitlementdomain.ResourceExpenseRecords:
		return cfg.MaxExpenseRecords, nil
	case entitlementdomain.ResourceStorageMB:
		return cfg.MaxStorageMB, nil
	default:
		return 0, entitlementdomain.ErrUnknownResourceKind
	}
}

func usagePercentage(current, limit int64) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(limit) * 100))
}
