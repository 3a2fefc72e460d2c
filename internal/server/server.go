package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sieadev/watchdog/internal/config"
	"github.com/sieadev/watchdog/internal/observability"
	obslogger "github.com/sieadev/watchdog/internal/observability/logger"
	reportdomain "github.com/sieadev/watchdog/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.registerRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Server is the command dispatcher boundary: it translates inbound intents
// into typed requests for the report service and renders the typed outcomes.
// All presentation decisions live here, none in the core.
type Server struct {
	engine    *gin.Engine
	log       *zap.Logger
	reportSvc reportdomain.Service
}

type Params struct {
	fx.In

	Gin       *gin.Engine
	Log       *zap.Logger
	ReportSvc reportdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		engine:    p.Gin,
		log:       p.Log.Named("http.server"),
		reportSvc: p.ReportSvc,
	}
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
