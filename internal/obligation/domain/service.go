package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/duebook/duebook/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateObligationRequest struct {
	OrgID    snowflake.ID
	ClientID *snowflake.ID

	Title         string
	Amount        decimal.Decimal
	DueDate       time.Time
	PaymentMethod string
	Notes         string

	IsRecurring         bool
	Frequency           Frequency
	RecurringDayOfMonth int
	RecurringEndDate    *time.Time

	RequiresInvoice bool
}

type ListObligationsRequest struct {
	pagination.Pagination

	OrgID    snowflake.ID
	ClientID *snowflake.ID
	Status   Status
	DueFrom  *time.Time
	DueTo    *time.Time
	ParentID *snowflake.ID
}

type ListObligationsResponse struct {
	pagination.PageInfo
	Obligations []Obligation `json:"obligations"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Create(ctx context.Context, req CreateObligationRequest) (Obligation, error)
	GetByID(ctx context.Context, orgID, id snowflake.ID) (Obligation, error)
	List(ctx context.Context, req ListObligationsRequest) (ListObligationsResponse, error)
	Settle(ctx context.Context, orgID, id snowflake.ID, settledAt time.Time) (Obligation, error)
	Cancel(ctx context.Context, orgID, id snowflake.ID) (Obligation, error)
	AttachInvoice(ctx context.Context, orgID, id snowflake.ID, actor string) (Obligation, error)
	RemoveInvoice(ctx context.Context, orgID, id snowflake.ID) (Obligation, error)
	DeactivateTemplate(ctx context.Context, orgID, templateID snowflake.ID) (Obligation, error)
	// RefreshStatus re-derives the obligation's status and persists it only
	// when the derivation moved on.
	RefreshStatus(ctx context.Context, orgID, id snowflake.ID) (Obligation, error)
}

var (
	ErrObligationNotFound    = errors.New("obligation_not_found")
	ErrDuplicateInstance     = errors.New("duplicate_instance")
	ErrNotTemplate           = errors.New("not_a_template")
	ErrTemplateNotSettleable = errors.New("template_not_settleable")
	ErrInvalidTitle          = errors.New("invalid_title")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidDueDate        = errors.New("invalid_due_date")
	ErrInvalidAnchorDay      = errors.New("invalid_anchor_day")
	ErrAlreadySettled        = errors.New("already_settled")
	ErrAlreadyCanceled       = errors.New("already_canceled")
	ErrInvoiceNotRequired    = errors.New("invoice_not_required")
	ErrNoInvoiceAttached     = errors.New("no_invoice_attached")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
)
