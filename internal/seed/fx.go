package seed

import (
	"github.com/bwmarrin/snowflake"
	"github.com/duebook/duebook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(runSeed),
)

func runSeed(cfg config.Config, db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if !cfg.SeedOnStartup {
		return nil
	}
	if err := EnsureDefaults(db, node); err != nil {
		return err
	}
	log.Info("seed completed")
	return nil
}
