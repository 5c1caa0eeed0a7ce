package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetClient(ctx context.Context, orgID, clientID snowflake.ID) (Client, error)
	// IsClientActive reports whether the client exists and has not been
	// soft-deleted. A missing client yields (false, nil), not an error.
	IsClientActive(ctx context.Context, orgID, clientID snowflake.ID) (bool, error)
}

var (
	ErrClientNotFound = errors.New("client_not_found")
)
