package entitlement

import (
	"github.com/duebook/duebook/internal/entitlement/repository"
	"github.com/duebook/duebook/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.ProvideCounter),
	fx.Provide(service.NewService),
)
