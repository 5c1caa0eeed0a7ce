// Package domain defines the resource accounting gate: plan-derived
// ceilings checked against live usage before a resource is created.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ResourceKind identifies a countable, plan-limited resource.
type ResourceKind string

const (
	ResourceObligations    ResourceKind = "obligations"
	ResourceDocuments      ResourceKind = "documents"
	ResourceExpenseRecords ResourceKind = "expense_records"
	ResourceStorageMB      ResourceKind = "storage_mb"
)

// Usage describes a client's consumption of one resource kind at check time.
type Usage struct {
	Current    int64 `json:"current"`
	Limit      int64 `json:"limit"`
	Percentage int   `json:"percentage"`
	Unlimited  bool  `json:"unlimited"`
}

// PlanSuggestion is an upgrade candidate attached to a denial.
type PlanSuggestion struct {
	PlanID       snowflake.ID    `json:"plan_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Currency     string          `json:"currency"`
}

// CheckResult is the gate verdict. A denial is not an error: callers must
// abort the pending creation and translate the result at their boundary.
type CheckResult struct {
	Allowed     bool             `json:"allowed"`
	Usage       Usage            `json:"usage"`
	Message     string           `json:"message,omitempty"`
	Suggestions []PlanSuggestion `json:"suggestions,omitempty"`
}

// Document is a stored artifact counted against the documents and storage
// ceilings. Rows are written by the file-upload surface, which is outside
// this core; the gate only counts them.
type Document struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	OrgID      snowflake.ID  `gorm:"not null;index"`
	ClientID   *snowflake.ID `gorm:"index"`
	FileName   string        `gorm:"type:text;not null"`
	SizeBytes  int64         `gorm:"not null;default:0"`
	UploadedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// ExpenseRecord is a countable expense entry, likewise written elsewhere.
type ExpenseRecord struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	OrgID      snowflake.ID    `gorm:"not null;index"`
	ClientID   *snowflake.ID   `gorm:"index"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	RecordedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExpenseRecord) TableName() string { return "expense_records" }
