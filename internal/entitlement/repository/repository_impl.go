package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	entitlementdomain "github.com/duebook/duebook/internal/entitlement/domain"
	"gorm.io/gorm"
)

// Counter computes live usage with direct count queries. Storage usage is
// the sum of document sizes expressed in whole megabytes, rounded up so a
// partially used megabyte still counts.
type Counter struct {
	db *gorm.DB
}

func ProvideCounter(db *gorm.DB) entitlementdomain.Counter {
	return &Counter{db: db}
}

func (c *Counter) Count(ctx context.Context, orgID, clientID snowflake.ID, kind entitlementdomain.ResourceKind) (int64, error) {
	switch kind {
	case entitlementdomain.ResourceObligations:
		return c.countRows(ctx, "obligations", orgID, clientID)
	case entitlementdomain.ResourceDocuments:
		return c.countRows(ctx, "documents", orgID, clientID)
	case entitlementdomain.ResourceExpenseRecords:
		return c.countRows(ctx, "expense_records", orgID, clientID)
	case entitlementdomain.ResourceStorageMB:
		return c.storageMB(ctx, orgID, clientID)
	default:
		return 0, entitlementdomain.ErrUnknownResourceKind
	}
}

func (c *Counter) countRows(ctx context.Context, table string, orgID, clientID snowflake.ID) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Table(table).
		Where("org_id = ? AND client_id = ?", orgID, clientID).
		Count(&count).Error
	return count, err
}

func (c *Counter) storageMB(ctx context.Context, orgID, clientID snowflake.ID) (int64, error) {
	var totalBytes int64
	err := c.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(size_bytes), 0)
		 FROM documents
		 WHERE org_id = ? AND client_id = ?`,
		orgID,
		clientID,
	).Scan(&totalBytes).Error
	if err != nil {
		return 0, err
	}

	const mb = int64(1024 * 1024)
	used := totalBytes / mb
	if totalBytes%mb != 0 {
		used++
	}
	return used, nil
}
