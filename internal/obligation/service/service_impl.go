package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/duebook/duebook/internal/clock"
	entitlementdomain "github.com/duebook/duebook/internal/entitlement/domain"
	obligationdomain "github.com/duebook/duebook/internal/obligation/domain"
	"github.com/duebook/duebook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           obligationdomain.Repository
	EntitlementSvc entitlementdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID          *snowflake.Node
	clock          clock.Clock
	repo           obligationdomain.Repository
	entitlementSvc entitlementdomain.Service
}

func NewService(p ServiceParam) obligationdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("obligation.service"),

		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		entitlementSvc: p.EntitlementSvc,
	}
}

func (s *Service) Create(ctx context.Context, req obligationdomain.CreateObligationRequest) (obligationdomain.Obligation, error) {
	if err := validateCreate(req); err != nil {
		return obligationdomain.Obligation{}, err
	}

	// Gate before create: owner-internal obligations carry no sub-tenant
	// plan and bypass the gate.
	if req.ClientID != nil {
		check, err := s.entitlementSvc.Check(ctx, req.OrgID, *req.ClientID, entitlementdomain.ResourceObligations)
		if err != nil {
			return obligationdomain.Obligation{}, err
		}
		if !check.Allowed {
			return obligationdomain.Obligation{}, &entitlementdomain.LimitExceededError{
				Kind:   entitlementdomain.ResourceObligations,
				Result: check,
			}
		}
	}

	now := s.clock.Now()
	o := obligationdomain.Obligation{
		ID:            s.genID.Generate(),
		OrgID:         req.OrgID,
		ClientID:      req.ClientID,
		Title:         strings.TrimSpace(req.Title),
		Amount:        req.Amount,
		DueDate:       obligationdomain.StartOfDay(req.DueDate),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,

		IsRecurring:     req.IsRecurring,
		RequiresInvoice: req.RequiresInvoice,
	}
	if req.IsRecurring {
		o.Frequency = req.Frequency
		o.RecurringDayOfMonth = clampAnchorDay(req.RecurringDayOfMonth, o.DueDate)
		if req.RecurringEndDate != nil {
			endDate := obligationdomain.StartOfDay(*req.RecurringEndDate)
			o.RecurringEndDate = &endDate
		}
	}
	o.Status = obligationdomain.ResolveStatus(o, now)

	if err := s.repo.Create(ctx, &o); err != nil {
		return obligationdomain.Obligation{}, err
	}

	s.log.Info("obligation created",
		zap.String("obligation_id", o.ID.String()),
		zap.String("org_id", o.OrgID.String()),
		zap.Bool("is_recurring", o.IsRecurring),
		zap.String("status", string(o.Status)),
	)
	return o, nil
}

func (s *Service) GetByID(ctx context.Context, orgID, id snowflake.ID) (obligationdomain.Obligation, error) {
	o, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}
	if o == nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrObligationNotFound
	}

	// The stored status is a read-optimization; reconcile it lazily when
	// the derivation has moved on (e.g. PENDING rolled into OVERDUE).
	if resolved := obligationdomain.ResolveStatus(*o, s.clock.Now()); resolved != o.Status {
		if err := s.repo.Update(ctx, o.ID, map[string]any{"status": resolved}); err != nil {
			return obligationdomain.Obligation{}, err
		}
		o.Status = resolved
	}
	return *o, nil
}

func (s *Service) List(ctx context.Context, req obligationdomain.ListObligationsRequest) (obligationdomain.ListObligationsResponse, error) {
	if req.PageSize <= 0 {
		req.PageSize = 50
	}

	rows, err := s.repo.List(ctx, req)
	if err != nil {
		return obligationdomain.ListObligationsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(req.PageSize), func(o *obligationdomain.Obligation) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        o.ID.String(),
			CreatedAt: o.DueDate.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(rows) > req.PageSize {
		rows = rows[:req.PageSize]
	}

	now := s.clock.Now()
	obligations := make([]obligationdomain.Obligation, 0, len(rows))
	for _, row := range rows {
		row.Status = obligationdomain.ResolveStatus(*row, now)
		obligations = append(obligations, *row)
	}

	return obligationdomain.ListObligationsResponse{
		PageInfo:    *pageInfo,
		Obligations: obligations,
	}, nil
}

func (s *Service) Settle(ctx context.Context, orgID, id snowflake.ID, settledAt time.Time) (obligationdomain.Obligation, error) {
	o, err := s.load(ctx, orgID, id)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}
	if o.IsTemplate() {
		return obligationdomain.Obligation{}, obligationdomain.ErrTemplateNotSettleable
	}
	if o.CanceledAt != nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrAlreadyCanceled
	}
	if o.SettledAt != nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrAlreadySettled
	}

	settled := settledAt.UTC()
	if err := s.repo.Update(ctx, o.ID, map[string]any{
		"settled_at": settled,
		"status":     obligationdomain.StatusPaid,
	}); err != nil {
		return obligationdomain.Obligation{}, err
	}
	o.SettledAt = &settled
	o.Status = obligationdomain.StatusPaid
	return *o, nil
}

func (s *Service) Cancel(ctx context.Context, orgID, id snowflake.ID) (obligationdomain.Obligation, error) {
	o, err := s.load(ctx, orgID, id)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}
	if o.CanceledAt != nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrAlreadyCanceled
	}
	if o.SettledAt != nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrAlreadySettled
	}

	canceledAt := s.clock.Now()
	if err := s.repo.Update(ctx, o.ID, map[string]any{
		"canceled_at": canceledAt,
		"status":      obligationdomain.StatusCanceled,
	}); err != nil {
		return obligationdomain.Obligation{}, err
	}
	o.CanceledAt = &canceledAt
	o.Status = obligationdomain.StatusCanceled
	return *o, nil
}

func (s *Service) AttachInvoice(ctx context.Context, orgID, id snowflake.ID, actor string) (obligationdomain.Obligation, error) {
	o, err := s.load(ctx, orgID, id)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}
	if !o.RequiresInvoice {
		return obligationdomain.Obligation{}, obligationdomain.ErrInvoiceNotRequired
	}
	if o.CanceledAt != nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrAlreadyCanceled
	}
	if o.SettledAt != nil {
		return obligationdomain.Obligation{}, obligationdomain.ErrAlreadySettled
	}

	// Stamp and transition in one UPDATE so the status can never be
	// observed without its bookkeeping.
	attachedAt := s.clock.Now()
	if err := s.repo.Update(ctx, o.ID, map[string]any{
		"invoice_attached_at": attachedAt,
		"invoice_attached_by": actor,
		"status":              obligationdomain.StatusReadyToPay,
	}); err != nil {
		return obligationdomain.Obligation{}, err
	}
	o.InvoiceAttachedAt = &attachedAt
	o.InvoiceAttachedBy = actor
	o.Status = obligationdomain.StatusReadyToPay
	return *o, nil
}

func (s *Service) RemoveInvoice(ctx context.Context, orgID, id snowflake.ID) (obligationdomain.Obligation, error) {
	o, err := s.load(ctx, orgID, id)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}
	if !o.RequiresInvoice {
		return obligationdomain.Obligation{}, obligationdomain.ErrInvoiceNotRequired
	}
	if !o.HasInvoiceAttached() {
		return obligationdomain.Obligation{}, obligationdomain.ErrNoInvoiceAttached
	}

	if err := s.repo.Update(ctx, o.ID, map[string]any{
		"invoice_attached_at": nil,
		"invoice_attached_by": "",
		"status":              obligationdomain.StatusAwaitingInvoice,
	}); err != nil {
		return obligationdomain.Obligation{}, err
	}
	o.InvoiceAttachedAt = nil
	o.InvoiceAttachedBy = ""
	o.Status = obligationdomain.StatusAwaitingInvoice
	return *o, nil
}

func (s *Service) DeactivateTemplate(ctx context.Context, orgID, templateID snowflake.ID) (obligationdomain.Obligation, error) {
	o, err := s.load(ctx, orgID, templateID)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}
	if !o.IsTemplate() {
		return obligationdomain.Obligation{}, obligationdomain.ErrNotTemplate
	}

	if err := s.repo.Update(ctx, o.ID, map[string]any{"is_recurring": false}); err != nil {
		return obligationdomain.Obligation{}, err
	}
	o.IsRecurring = false

	s.log.Info("template deactivated",
		zap.String("template_id", o.ID.String()),
		zap.String("org_id", o.OrgID.String()),
	)
	return *o, nil
}

func (s *Service) RefreshStatus(ctx context.Context, orgID, id snowflake.ID) (obligationdomain.Obligation, error) {
	o, err := s.load(ctx, orgID, id)
	if err != nil {
		return obligationdomain.Obligation{}, err
	}

	resolved := obligationdomain.ResolveStatus(*o, s.clock.Now())
	if resolved == o.Status {
		return *o, nil
	}
	if err := s.repo.Update(ctx, o.ID, map[string]any{"status": resolved}); err != nil {
		return obligationdomain.Obligation{}, err
	}
	o.Status = resolved
	return *o, nil
}

func (s *Service) load(ctx context.Context, orgID, id snowflake.ID) (*obligationdomain.Obligation, error) {
	o, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, obligationdomain.ErrObligationNotFound
	}
	return o, nil
}

func validateCreate(req obligationdomain.CreateObligationRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return obligationdomain.ErrInvalidTitle
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return obligationdomain.ErrInvalidAmount
	}
	if req.DueDate.IsZero() {
		return obligationdomain.ErrInvalidDueDate
	}
	if req.IsRecurring {
		switch req.Frequency {
		case obligationdomain.FrequencyMonthly,
			obligationdomain.FrequencyQuarterly,
			obligationdomain.FrequencySemiannual,
			obligationdomain.FrequencyYearly:
		default:
			return obligationdomain.ErrInvalidFrequency
		}
		if req.RecurringDayOfMonth < 0 || req.RecurringDayOfMonth > 31 {
			return obligationdomain.ErrInvalidAnchorDay
		}
	}
	return nil
}

// clampAnchorDay defaults a missing anchor to the due date's own day.
func clampAnchorDay(anchor int, dueDate time.Time) int {
	if anchor == 0 {
		anchor = dueDate.Day()
	}
	if anchor < 1 {
		anchor = 1
	}
	if anchor > 31 {
		anchor = 31
	}
	return anchor
}
