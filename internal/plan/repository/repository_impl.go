package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/duebook/duebook/internal/plan/domain"
	"github.com/duebook/duebook/pkg/repository"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB

	planrepo repository.Repository[plandomain.Plan]
	subrepo  repository.Repository[plandomain.Subscription]
}

func Provide(db *gorm.DB) plandomain.Repository {
	return &Repository{
		db:       db,
		planrepo: repository.ProvideStore[plandomain.Plan](db),
		subrepo:  repository.ProvideStore[plandomain.Subscription](db),
	}
}

func (r *Repository) GetPlan(ctx context.Context, planID snowflake.ID) (*plandomain.Plan, error) {
	plan, err := r.planrepo.FindOne(ctx, &plandomain.Plan{ID: planID})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	return plan, nil
}

func (r *Repository) ActivePlanForClient(ctx context.Context, orgID, clientID snowflake.ID) (*plandomain.Plan, error) {
	sub, err := r.subrepo.FindOne(ctx, &plandomain.Subscription{
		OrgID:    orgID,
		ClientID: clientID,
		Status:   plandomain.SubscriptionStatusActive,
	})
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, plandomain.ErrNoActivePlan
	}

	plan, err := r.planrepo.FindOne(ctx, &plandomain.Plan{ID: sub.PlanID})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrNoActivePlan
	}
	return plan, nil
}

func (r *Repository) UpgradeCandidates(ctx context.Context, current plandomain.Plan, max int) ([]plandomain.Plan, error) {
	if max <= 0 {
		return nil, nil
	}

	var candidates []plandomain.Plan
	err := r.db.WithContext(ctx).
		Where("category = ? AND active = ? AND monthly_price > ?", current.Category, true, current.MonthlyPrice).
		Order("monthly_price ASC").
		Limit(max).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
