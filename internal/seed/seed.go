// Package seed bootstraps a fresh database with the default organization
// and the built-in plan catalog. Seeding is idempotent: existing rows are
// left untouched.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/duebook/duebook/internal/plan/domain"
	tenantdomain "github.com/duebook/duebook/internal/tenant/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultOrgName = "Main"

func defaultPlans() []plandomain.Plan {
	return []plandomain.Plan{
		{
			Code:              "starter",
			Name:              "Starter",
			Category:          "accounting",
			MonthlyPrice:      decimal.RequireFromString("9.90"),
			Currency:          "EUR",
			MaxObligations:    20,
			MaxDocuments:      20,
			MaxExpenseRecords: 20,
			MaxStorageMB:      100,
			Active:            true,
		},
		{
			Code:              "pro",
			Name:              "Pro",
			Category:          "accounting",
			MonthlyPrice:      decimal.RequireFromString("19.90"),
			Currency:          "EUR",
			MaxObligations:    200,
			MaxDocuments:      200,
			MaxExpenseRecords: 200,
			MaxStorageMB:      1024,
			Active:            true,
		},
		{
			Code:              "business",
			Name:              "Business",
			Category:          "accounting",
			MonthlyPrice:      decimal.RequireFromString("49.90"),
			Currency:          "EUR",
			MaxObligations:    plandomain.UnlimitedLimit,
			MaxDocuments:      plandomain.UnlimitedLimit,
			MaxExpenseRecords: plandomain.UnlimitedLimit,
			MaxStorageMB:      plandomain.UnlimitedLimit,
			Active:            true,
		},
	}
}

// EnsureDefaults seeds the default organization and plan catalog.
func EnsureDefaults(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDefaultOrg(ctx, tx, node); err != nil {
			return err
		}
		return ensurePlanCatalog(ctx, tx, node)
	})
}

func ensureDefaultOrg(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&tenantdomain.Organization{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&tenantdomain.Organization{
		ID:   node.Generate(),
		Name: defaultOrgName,
	}).Error
}

func ensurePlanCatalog(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	for _, plan := range defaultPlans() {
		var existing plandomain.Plan
		err := tx.WithContext(ctx).Where("code = ?", plan.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		plan.ID = node.Generate()
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}
