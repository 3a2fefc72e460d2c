package report

import (
	"github.com/sieadev/watchdog/internal/report/repository"
	"github.com/sieadev/watchdog/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
