package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/duebook/duebook/internal/config"
	entitlementdomain "github.com/duebook/duebook/internal/entitlement/domain"
	plandomain "github.com/duebook/duebook/internal/plan/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePlanRepo struct {
	plan          *plandomain.Plan
	planErr       error
	candidates    []plandomain.Plan
	candidatesErr error
}

func (f *fakePlanRepo) GetPlan(ctx context.Context, planID snowflake.ID) (*plandomain.Plan, error) {
	return f.plan, f.planErr
}

func (f *fakePlanRepo) ActivePlanForClient(ctx context.Context, orgID, clientID snowflake.ID) (*plandomain.Plan, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	return f.plan, nil
}

func (f *fakePlanRepo) UpgradeCandidates(ctx context.Context, current plandomain.Plan, max int) ([]plandomain.Plan, error) {
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	if len(f.candidates) > max {
		return f.candidates[:max], nil
	}
	return f.candidates, nil
}

type fakeCounter struct {
	count  int64
	err    error
	called bool
}

func (f *fakeCounter) Count(ctx context.Context, orgID, clientID snowflake.ID, kind entitlementdomain.ResourceKind) (int64, error) {
	f.called = true
	return f.count, f.err
}

func newTestService(t *testing.T, repo *fakePlanRepo, counter *fakeCounter, limits config.LimitsConfig) entitlementdomain.Service {
	t.Helper()
	return NewService(ServiceParam{
		Log:       zaptest.NewLogger(t),
		PlanRepo:  repo,
		Counter:   counter,
		LimitsCfg: config.NewStaticLimitsConfigHolder(limits),
	})
}

func planWithObligationLimit(limit int64) *plandomain.Plan {
	return &plandomain.Plan{
		ID:             1,
		Code:           "starter",
		Name:           "Starter",
		Category:       "accounting",
		MonthlyPrice:   decimal.RequireFromString("9.90"),
		Currency:       "EUR",
		MaxObligations: limit,
		Active:         true,
	}
}

func TestCheckDeniesAtExclusiveCeiling(t *testing.T) {
	repo := &fakePlanRepo{plan: planWithObligationLimit(5)}
	counter := &fakeCounter{count: 5}
	svc := newTestService(t, repo, counter, config.DefaultLimitsConfig())

	result, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceObligations)
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.EqualValues(t, 5, result.Usage.Current)
	assert.EqualValues(t, 5, result.Usage.Limit)
	assert.Equal(t, 100, result.Usage.Percentage)
	assert.Contains(t, result.Message, "5 of 5")
}

func TestCheckAllowsBelowCeiling(t *testing.T) {
	repo := &fakePlanRepo{plan: planWithObligationLimit(5)}
	counter := &fakeCounter{count: 4}
	svc := newTestService(t, repo, counter, config.DefaultLimitsConfig())

	result, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceObligations)
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.EqualValues(t, 4, result.Usage.Current)
	assert.Equal(t, 80, result.Usage.Percentage)
	assert.Empty(t, result.Suggestions)
}

func TestCheckUnlimitedSkipsCounting(t *testing.T) {
	repo := &fakePlanRepo{plan: planWithObligationLimit(plandomain.UnlimitedLimit)}
	counter := &fakeCounter{count: 9999}
	svc := newTestService(t, repo, counter, config.DefaultLimitsConfig())

	result, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceObligations)
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.True(t, result.Usage.Unlimited)
	assert.False(t, counter.called)
}

func TestCheckFallsBackToDefaultLimitsWithoutPlan(t *testing.T) {
	repo := &fakePlanRepo{planErr: plandomain.ErrNoActivePlan}
	counter := &fakeCounter{count: 2}
	svc := newTestService(t, repo, counter, config.LimitsConfig{MaxObligations: 2})

	result, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceObligations)
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.EqualValues(t, 2, result.Usage.Limit)
	// No plan means nothing to upgrade from.
	assert.Empty(t, result.Suggestions)
}

func TestCheckDenialCarriesUpgradeSuggestions(t *testing.T) {
	repo := &fakePlanRepo{
		plan: planWithObligationLimit(5),
		candidates: []plandomain.Plan{
			{ID: 2, Code: "pro", Name: "Pro", Category: "accounting", MonthlyPrice: decimal.RequireFromString("19.90"), Currency: "EUR"},
			{ID: 3, Code: "business", Name: "Business", Category: "accounting", MonthlyPrice: decimal.RequireFromString("49.90"), Currency: "EUR"},
		},
	}
	counter := &fakeCounter{count: 5}
	svc := newTestService(t, repo, counter, config.DefaultLimitsConfig())

	result, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceObligations)
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, "pro", result.Suggestions[0].Code)
	assert.Equal(t, "business", result.Suggestions[1].Code)
}

func TestCheckSuggestionLookupFailureStillDenies(t *testing.T) {
	repo := &fakePlanRepo{
		plan:          planWithObligationLimit(5),
		candidatesErr: errors.New("db down"),
	}
	counter := &fakeCounter{count: 5}
	svc := newTestService(t, repo, counter, config.DefaultLimitsConfig())

	result, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceObligations)
	require.NoError(t, err)

	assert.False(t, result.Allowed)
	assert.Empty(t, result.Suggestions)
}

func TestCheckUnknownResourceKind(t *testing.T) {
	repo := &fakePlanRepo{plan: planWithObligationLimit(5)}
	svc := newTestService(t, repo, &fakeCounter{}, config.DefaultLimitsConfig())

	_, err := svc.Check(context.Background(), 10, 20, entitlementdomain.ResourceKind("widgets"))
	assert.ErrorIs(t, err, entitlementdomain.ErrUnknownResourceKind)
}
