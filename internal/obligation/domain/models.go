// Package domain contains persistence models and pure business rules for
// ledger obligations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status is the lifecycle state of an obligation. Stored values are a
// read-optimization; ResolveStatus is the source of truth.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPaid            Status = "PAID"
	StatusOverdue         Status = "OVERDUE"
	StatusCanceled        Status = "CANCELED"
	StatusAwaitingInvoice Status = "AWAITING_INVOICE"
	StatusReadyToPay      Status = "READY_TO_PAY"
)

// Frequency is the recurrence cadence of a template.
type Frequency string

const (
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
	FrequencyYearly     Frequency = "YEARLY"
)

// Obligation is either a recurring template or a concrete due amount.
// A template has IsRecurring=true and ParentID=nil; every instance spawned
// from it carries the template id in ParentID. The unique index on
// (parent_id, due_date) is the storage-level guarantee that a template
// materializes at most one instance per due date.
type Obligation struct {
	ID       snowflake.ID  `gorm:"primaryKey"`
	OrgID    snowflake.ID  `gorm:"not null;index"`
	ClientID *snowflake.ID `gorm:"index"` // nil for owner-internal obligations

	Title         string          `gorm:"type:text;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	DueDate       time.Time       `gorm:"not null;index;uniqueIndex:ux_obligations_parent_due,priority:2"`
	SettledAt     *time.Time      `gorm:""`
	PaymentMethod string          `gorm:"type:text"`
	Notes         string          `gorm:"type:text"`
	Status        Status          `gorm:"type:text;not null;default:'PENDING'"`

	IsRecurring         bool          `gorm:"not null;default:false;index"`
	Frequency           Frequency     `gorm:"type:text"`
	RecurringDayOfMonth int           `gorm:"type:smallint"`
	RecurringEndDate    *time.Time    `gorm:""`
	ParentID            *snowflake.ID `gorm:"index;uniqueIndex:ux_obligations_parent_due,priority:1"`

	RequiresInvoice   bool       `gorm:"not null;default:false"`
	InvoiceAttachedAt *time.Time `gorm:""`
	InvoiceAttachedBy string     `gorm:"type:text"`

	CanceledAt *time.Time        `gorm:""`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Obligation) TableName() string { return "obligations" }

// IsTemplate reports whether the obligation is a recurring definition
// rather than a concrete due amount.
func (o Obligation) IsTemplate() bool {
	return o.IsRecurring && o.ParentID == nil
}

// HasInvoiceAttached reports whether a qualifying artifact is attached.
func (o Obligation) HasInvoiceAttached() bool {
	return o.InvoiceAttachedAt != nil
}
