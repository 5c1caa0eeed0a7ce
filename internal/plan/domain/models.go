// Package domain contains persistence models for plans and client subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UnlimitedLimit marks a plan ceiling as unbounded.
const UnlimitedLimit int64 = -1

// Plan is a priced tier with per-resource ceilings. A ceiling of -1 means
// the plan imposes no bound on that resource kind.
type Plan struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	Code         string          `gorm:"type:text;not null;uniqueIndex"`
	Name         string          `gorm:"type:text;not null"`
	Category     string          `gorm:"type:text;not null;index"`
	MonthlyPrice decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency     string          `gorm:"type:text;not null;default:'EUR'"`

	MaxObligations    int64 `gorm:"not null;default:-1"`
	MaxDocuments      int64 `gorm:"not null;default:-1"`
	MaxExpenseRecords int64 `gorm:"not null;default:-1"`
	MaxStorageMB      int64 `gorm:"not null;default:-1"`

	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// Subscription binds a client to its active plan.
type Subscription struct {
	ID         snowflake.ID       `gorm:"primaryKey"`
	OrgID      snowflake.ID       `gorm:"not null;index"`
	ClientID   snowflake.ID       `gorm:"not null;index"`
	PlanID     snowflake.ID       `gorm:"not null;index"`
	Status     SubscriptionStatus `gorm:"type:text;not null"`
	StartedAt  time.Time          `gorm:"not null"`
	CanceledAt *time.Time         `gorm:""`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
