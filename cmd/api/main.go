package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/inkhouse/bookstock/internal/application/approval"
	"github.com/inkhouse/bookstock/internal/application/movement"
	"github.com/inkhouse/bookstock/internal/infrastructure/audit"
	"github.com/inkhouse/bookstock/internal/infrastructure/notify"
	"github.com/inkhouse/bookstock/internal/infrastructure/postgres"
	httpRouter "github.com/inkhouse/bookstock/internal/interfaces/http"
	"github.com/inkhouse/bookstock/pkg/config"
	"github.com/inkhouse/bookstock/pkg/logger"
	"github.com/inkhouse/bookstock/pkg/metrics"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("starting application")

	if err := runMigrations(cfg.DB.ConnectionString()); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	log.Info().Msg("migrations applied")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to PostgreSQL")
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	titleRepo := postgres.NewTitleRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	projectionRepo := postgres.NewProjectionRepository(pool)
	approvalRepo := postgres.NewApprovalRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	validator := movement.NewValidator(titleRepo, warehouseRepo, projectionRepo, movementRepo, cfg.Batch.LargeQuantity)

	var notifier movement.Notifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout, log)
	}
	auditor := audit.NewLog(log)

	coordinator := movement.NewCoordinator(txRunner, validator, notifier, auditor, log.Component("coordinator"), m)
	batch := movement.NewBatchProcessor(coordinator, validator, cfg.Batch.DefaultSize, log.Component("batch"), m)
	reversal := movement.NewReversal(movementRepo, coordinator, log.Component("reversal"))

	gateCfg := approval.DefaultConfig()
	gateCfg.MaxAutoRisk = cfg.Approval.MaxAutoRisk
	gateCfg.QuantityThreshold = cfg.Approval.QuantityThreshold
	gateCfg.ValueThreshold = decimal.NewFromFloat(cfg.Approval.ValueThreshold)
	gateCfg.LevelTimeout = cfg.Approval.LevelTimeout
	gate := approval.NewGate(approvalRepo, movementRepo, coordinator, gateCfg, log.Component("approval"), m)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Coordinator:    coordinator,
		Batch:          batch,
		Reversal:       reversal,
		Gate:           gate,
		Movements:      movementRepo,
		Projections:    projectionRepo,
		Approvals:      approvalRepo,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// Periodic deadline sweep: expired approvals escalate up the ladder.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(cfg.Approval.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-ticker.C:
				if n, err := gate.Sweep(sweepCtx, now); err != nil {
					log.Error().Err(err).Msg("approval sweep")
				} else if n > 0 {
					log.Info().Int("touched", n).Msg("approval sweep")
				}
			}
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping server...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
