package obligation

import (
	"github.com/duebook/duebook/internal/obligation/repository"
	"github.com/duebook/duebook/internal/obligation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("obligation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
