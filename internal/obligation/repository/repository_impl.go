package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	obligationdomain "github.com/duebook/duebook/internal/obligation/domain"
	"github.com/duebook/duebook/pkg/db"
	"github.com/duebook/duebook/pkg/db/option"
	"github.com/duebook/duebook/pkg/db/pagination"
	"github.com/duebook/duebook/pkg/repository"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB

	store repository.Repository[obligationdomain.Obligation]
}

func Provide(conn *gorm.DB) obligationdomain.Repository {
	return &Repository{
		db:    conn,
		store: repository.ProvideStore[obligationdomain.Obligation](conn),
	}
}

func (r *Repository) Create(ctx context.Context, o *obligationdomain.Obligation) error {
	return r.store.Create(ctx, o)
}

func (r *Repository) GetByID(ctx context.Context, orgID, id snowflake.ID) (*obligationdomain.Obligation, error) {
	return r.store.FindOne(ctx, &obligationdomain.Obligation{ID: id, OrgID: orgID})
}

func (r *Repository) List(ctx context.Context, req obligationdomain.ListObligationsRequest) ([]*obligationdomain.Obligation, error) {
	opts := []option.QueryOption{
		option.WithOrder("due_date ASC, id ASC"),
	}
	if req.PageSize > 0 {
		opts = append(opts, option.WithLimit(req.PageSize+1))
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return nil, obligationdomain.ErrInvalidPageToken
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, obligationdomain.ErrInvalidPageToken
		}
		afterDue, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, obligationdomain.ErrInvalidPageToken
		}
		opts = append(opts, option.WithCondition(
			"due_date > ? OR (due_date = ? AND id > ?)", afterDue, afterDue, afterID,
		))
	}
	if req.ClientID != nil {
		opts = append(opts, option.WithCondition("client_id = ?", *req.ClientID))
	}
	if req.ParentID != nil {
		opts = append(opts, option.WithCondition("parent_id = ?", *req.ParentID))
	}
	if req.Status != "" {
		opts = append(opts, option.WithCondition("status = ?", req.Status))
	}
	if req.DueFrom != nil {
		opts = append(opts, option.WithCondition("due_date >= ?", obligationdomain.StartOfDay(*req.DueFrom)))
	}
	if req.DueTo != nil {
		opts = append(opts, option.WithCondition("due_date <= ?", obligationdomain.StartOfDay(*req.DueTo)))
	}

	return r.store.Find(ctx, &obligationdomain.Obligation{OrgID: req.OrgID}, opts...)
}

func (r *Repository) Update(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&obligationdomain.Obligation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *Repository) ListActiveTemplates(ctx context.Context, asOf time.Time, afterID snowflake.ID, limit int) ([]*obligationdomain.Obligation, error) {
	var templates []*obligationdomain.Obligation
	err := r.db.WithContext(ctx).
		Where("is_recurring = ? AND parent_id IS NULL", true).
		Where("recurring_end_date IS NULL OR recurring_end_date >= ?", obligationdomain.StartOfDay(asOf)).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&templates).Error
	return templates, err
}

func (r *Repository) LatestInstance(ctx context.Context, parentID snowflake.ID) (*obligationdomain.Obligation, error) {
	return r.store.FindOne(ctx, &obligationdomain.Obligation{ParentID: &parentID},
		option.WithOrder("due_date DESC"),
	)
}

func (r *Repository) FindInstance(ctx context.Context, parentID snowflake.ID, dueDate time.Time) (*obligationdomain.Obligation, error) {
	var instance obligationdomain.Obligation
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND due_date = ?", parentID, obligationdomain.StartOfDay(dueDate)).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

func (r *Repository) CreateInstance(ctx context.Context, o *obligationdomain.Obligation) error {
	// The unique index on (parent_id, due_date) is the correctness
	// mechanism; any pre-insert existence check is only a fast path.
	if err := r.store.Create(ctx, o); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return obligationdomain.ErrDuplicateInstance
		}
		return err
	}
	return nil
}

func (r *Repository) ListOpen(ctx context.Context, afterID snowflake.ID, limit int) ([]*obligationdomain.Obligation, error) {
	var open []*obligationdomain.Obligation
	err := r.db.WithContext(ctx).
		Where("settled_at IS NULL AND canceled_at IS NULL").
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&open).Error
	return open, err
}
