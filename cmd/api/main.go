package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/labops-api/internal/config"
	"github.com/jwalitptl/labops-api/internal/handler"
	auditHandler "github.com/jwalitptl/labops-api/internal/handler/audit"
	configHandler "github.com/jwalitptl/labops-api/internal/handler/configsync"
	instrumentHandler "github.com/jwalitptl/labops-api/internal/handler/instrument"
	rawresultHandler "github.com/jwalitptl/labops-api/internal/handler/rawresult"
	reagentHandler "github.com/jwalitptl/labops-api/internal/handler/reagent"
	testorderHandler "github.com/jwalitptl/labops-api/internal/handler/testorder"
	"github.com/jwalitptl/labops-api/internal/middleware"
	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository/postgres"
	"github.com/jwalitptl/labops-api/internal/router"
	auditService "github.com/jwalitptl/labops-api/internal/service/audit"
	configsyncService "github.com/jwalitptl/labops-api/internal/service/configsync"
	instrumentService "github.com/jwalitptl/labops-api/internal/service/instrument"
	rawresultService "github.com/jwalitptl/labops-api/internal/service/rawresult"
	rbacService "github.com/jwalitptl/labops-api/internal/service/rbac"
	reagentService "github.com/jwalitptl/labops-api/internal/service/reagent"
	testorderService "github.com/jwalitptl/labops-api/internal/service/testorder"
	"github.com/jwalitptl/labops-api/pkg/auth"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	instrumentRepo := postgres.NewInstrumentRepository(base)
	reagentRepo := postgres.NewReagentRepository(base)
	testOrderRepo := postgres.NewTestOrderRepository(base)
	rawResultRepo := postgres.NewRawResultRepository(base)
	configRepo := postgres.NewConfigRepository(base)
	syncTargetRepo := postgres.NewSyncTargetRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	m := metrics.NewMetrics("labops", "api")

	rbacSvc := rbacService.NewService()
	auditSvc := auditService.NewService(auditRepo)
	auditSvc.SetMetrics(m)

	diagnostics := instrumentService.NewHTTPDiagnostic(cfg.Gateway.URL, cfg.Gateway.ProbeTimeout)
	instrumentSvc := instrumentService.NewService(instrumentRepo, rbacSvc, auditSvc, diagnostics)
	instrumentSvc.SetMetrics(m)
	reagentSvc := reagentService.NewService(reagentRepo, rbacSvc, auditSvc)
	testOrderSvc := testorderService.NewService(testOrderRepo, rbacSvc, auditSvc)
	rawResultSvc := rawresultService.NewService(rawResultRepo, rbacSvc, auditSvc)

	endpoints := make(map[model.ServiceScope]string, len(cfg.Sync.Endpoints))
	for scope, url := range cfg.Sync.Endpoints {
		endpoints[model.ServiceScope(scope)] = url
	}
	transport := configsyncService.NewHTTPTransport(configRepo, endpoints, cfg.Sync.PushTimeout)
	configSvc := configsyncService.NewService(configRepo, syncTargetRepo, outboxRepo, rbacSvc, auditSvc, transport)

	tokenSvc := auth.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc, rbacSvc)

	h := handler.NewHandler(db)
	handlers := router.Handlers{
		Instrument: instrumentHandler.NewHandler(instrumentSvc),
		Reagent:    reagentHandler.NewHandler(reagentSvc),
		TestOrder:  testorderHandler.NewHandler(testOrderSvc),
		RawResult:  rawresultHandler.NewHandler(rawResultSvc),
		Config:     configHandler.NewHandler(configSvc),
		Audit:      auditHandler.NewHandler(auditSvc),
	}

	r := router.NewRouter(authMiddleware, handlers, h, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
		RateBurst:     cfg.Server.RateLimitBurst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "labops_api",
		CacheTTL:      10 * time.Second,
		Metrics:       m,
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
