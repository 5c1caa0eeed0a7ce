package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	// Check compares the client's live usage of kind against its plan
	// ceiling. Must be invoked before creating the resource; enforcement
	// is a service-layer convention, not a storage constraint.
	Check(ctx context.Context, orgID, clientID snowflake.ID, kind ResourceKind) (CheckResult, error)
}

// Counter reads live usage. Counts are computed on demand at check time,
// never cached.
type Counter interface {
	Count(ctx context.Context, orgID, clientID snowflake.ID, kind ResourceKind) (int64, error)
}

var ErrUnknownResourceKind = errors.New("unknown_resource_kind")

// LimitExceededError carries the structured denial through creation
// pathways that communicate by error. The embedded result keeps the
// upgrade context available at the boundary.
type LimitExceededError struct {
	Kind   ResourceKind
	Result CheckResult
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit exceeded for %s: %d/%d", e.Kind, e.Result.Usage.Current, e.Result.Usage.Limit)
}
