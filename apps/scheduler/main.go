package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/duebook/duebook/internal/clock"
	"github.com/duebook/duebook/internal/config"
	"github.com/duebook/duebook/internal/entitlement"
	"github.com/duebook/duebook/internal/logger"
	"github.com/duebook/duebook/internal/migration"
	"github.com/duebook/duebook/internal/obligation"
	"github.com/duebook/duebook/internal/plan"
	"github.com/duebook/duebook/internal/scheduler"
	"github.com/duebook/duebook/internal/seed"
	"github.com/duebook/duebook/internal/tenant"
	"github.com/duebook/duebook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		seed.Module,
		clock.Module,

		// Domain services required by the scheduler
		tenant.Module,
		plan.Module,
		entitlement.Module,
		obligation.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
