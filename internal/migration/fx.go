package migration

import (
	"github.com/shaghafhq/shaghaf/internal/config"
	"github.com/shaghafhq/shaghaf/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.DefaultBranchID != 0 {
			return seed.EnsureDefaultBranchWithID(conn, cfg.DefaultBranchID)
		}
		return seed.EnsureDefaultBranch(conn)
	}),
)
