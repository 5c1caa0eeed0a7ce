package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	GetPlan(ctx context.Context, planID snowflake.ID) (*Plan, error)
	// ActivePlanForClient resolves the plan attached to the client's
	// active subscription. Returns ErrNoActivePlan when the client has no
	// usable subscription or the plan record is missing.
	ActivePlanForClient(ctx context.Context, orgID, clientID snowflake.ID) (*Plan, error)
	// UpgradeCandidates lists active plans in the same category priced
	// strictly above the given plan, cheapest first, capped at max.
	UpgradeCandidates(ctx context.Context, current Plan, max int) ([]Plan, error)
}

var (
	ErrPlanNotFound = errors.New("plan_not_found")
	ErrNoActivePlan = errors.New("no_active_plan")
)
