package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository is the persistence surface the service and the scheduler
// jobs share. CreateInstance must be atomic with respect to the
// (parent_id, due_date) unique index: concurrent materializer runs racing
// on the same candidate date must yield exactly one row, with the loser
// receiving ErrDuplicateInstance.
type Repository interface {
	Create(ctx context.Context, o *Obligation) error
	GetByID(ctx context.Context, orgID, id snowflake.ID) (*Obligation, error)
	List(ctx context.Context, req ListObligationsRequest) ([]*Obligation, error)
	Update(ctx context.Context, id snowflake.ID, fields map[string]any) error

	// ListActiveTemplates pages through materialization-eligible templates:
	// recurring, parentless, end date unset or not yet passed as of asOf.
	// Keyset-paged by id for stable batching.
	ListActiveTemplates(ctx context.Context, asOf time.Time, afterID snowflake.ID, limit int) ([]*Obligation, error)
	// LatestInstance returns the most recently due instance of a template,
	// or nil when none has been generated yet.
	LatestInstance(ctx context.Context, parentID snowflake.ID) (*Obligation, error)
	// FindInstance is the idempotency fast-path lookup.
	FindInstance(ctx context.Context, parentID snowflake.ID, dueDate time.Time) (*Obligation, error)
	// CreateInstance persists a materialized instance, returning
	// ErrDuplicateInstance when the unique index rejects the row.
	CreateInstance(ctx context.Context, o *Obligation) error

	// ListOpen pages through obligations whose status may still change,
	// for the daily refresh sweep.
	ListOpen(ctx context.Context, afterID snowflake.ID, limit int) ([]*Obligation, error)
}
