package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/duebook/duebook/internal/tenant/domain"
	"github.com/duebook/duebook/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clientrepo repository.Repository[tenantdomain.Client]
}

func NewService(p ServiceParam) tenantdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),

		clientrepo: repository.ProvideStore[tenantdomain.Client](p.DB),
	}
}

func (s *Service) GetClient(ctx context.Context, orgID, clientID snowflake.ID) (tenantdomain.Client, error) {
	client, err := s.clientrepo.FindOne(ctx, &tenantdomain.Client{ID: clientID, OrgID: orgID})
	if err != nil {
		return tenantdomain.Client{}, err
	}
	if client == nil {
		return tenantdomain.Client{}, tenantdomain.ErrClientNotFound
	}
	return *client, nil
}

func (s *Service) IsClientActive(ctx context.Context, orgID, clientID snowflake.ID) (bool, error) {
	// Soft-deleted rows are excluded by gorm's default scope, so a hit
	// here means the client is live.
	client, err := s.clientrepo.FindOne(ctx, &tenantdomain.Client{ID: clientID, OrgID: orgID})
	if err != nil {
		return false, err
	}
	return client != nil, nil
}
