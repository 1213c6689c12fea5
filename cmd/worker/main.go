package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/labops-api/internal/config"
	"github.com/jwalitptl/labops-api/internal/email"
	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository/postgres"
	"github.com/jwalitptl/labops-api/internal/service/configsync"
	internalWorker "github.com/jwalitptl/labops-api/internal/worker"
	"github.com/jwalitptl/labops-api/pkg/logger"
	"github.com/jwalitptl/labops-api/pkg/messaging/redis"
	"github.com/jwalitptl/labops-api/pkg/metrics"
	"github.com/jwalitptl/labops-api/pkg/worker"
)

// WorkerConfig is read from the environment. The worker is deployed beside
// the API but owns the periodic loops: convergence, outbox draining and
// audit retention.
type WorkerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"labops"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SyncInterval    time.Duration     `envconfig:"SYNC_INTERVAL" default:"1m"`
	SyncPushTimeout time.Duration     `envconfig:"SYNC_PUSH_TIMEOUT" default:"15s"`
	SyncEndpoints   map[string]string `envconfig:"SYNC_ENDPOINTS"`

	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`

	AuditRetentionDays   int           `envconfig:"AUDIT_RETENTION_DAYS" default:"365"`
	AuditCleanupInterval time.Duration `envconfig:"AUDIT_CLEANUP_INTERVAL" default:"24h"`

	SMTPHost     string   `envconfig:"SMTP_HOST"`
	SMTPPort     int      `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string   `envconfig:"SMTP_USERNAME"`
	SMTPPassword string   `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string   `envconfig:"SMTP_FROM"`
	AlertTo      []string `envconfig:"ALERT_TO"`

	HealthPort int `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	var cfg WorkerConfig
	if err := envconfig.Process("labops", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	lg := logger.NewLogger(nil)

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	configRepo := postgres.NewConfigRepository(base)
	syncTargetRepo := postgres.NewSyncTargetRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	m := metrics.NewMetrics("labops", "worker")

	endpoints := make(map[model.ServiceScope]string, len(cfg.SyncEndpoints))
	for scope, url := range cfg.SyncEndpoints {
		endpoints[model.ServiceScope(scope)] = url
	}
	transport := configsync.NewHTTPTransport(configRepo, endpoints, cfg.SyncPushTimeout)
	converger := configsync.NewConverger(configRepo, syncTargetRepo, transport)

	alerter := email.NewService(config.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		AlertTo:  cfg.AlertTo,
	})

	convergence := internalWorker.NewConvergenceWorker(converger, syncTargetRepo, cfg.SyncInterval, m, alerter)
	cleanup := internalWorker.NewAuditCleanupWorker(auditRepo, cfg.AuditRetentionDays, cfg.AuditCleanupInterval)
	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
		RetryAttempts: cfg.OutboxRetryAttempts,
		RetryDelay:    cfg.OutboxRetryDelay,
	}, lg, m)

	setupHealthCheck(cfg.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down workers...")
		cancel()
	}()

	go convergence.Start(ctx)
	go cleanup.Start(ctx)
	processor.Start(ctx)
}

func setupHealthCheck(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}
