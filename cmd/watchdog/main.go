package main

import (
	"github.com/sieadev/watchdog/internal/clock"
	"github.com/sieadev/watchdog/internal/config"
	"github.com/sieadev/watchdog/internal/migration"
	"github.com/sieadev/watchdog/internal/observability"
	"github.com/sieadev/watchdog/internal/report"
	"github.com/sieadev/watchdog/internal/server"
	"github.com/sieadev/watchdog/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,

		report.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}
