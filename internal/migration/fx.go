package migration

import (
	"context"

	"github.com/sieadev/watchdog/internal/config"
	reportdomain "github.com/sieadev/watchdog/internal/report/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module initializes the schema at startup. This is the only place where a
// storage failure is fatal: without the reports table the service cannot
// function, so the fx error aborts boot.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, repo reportdomain.Repository) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		return repo.EnsureSchema(context.Background(), conn)
	}),
)
