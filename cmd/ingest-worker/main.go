package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/healops/internal/config"
	"github.com/edvin/healops/internal/core"
	"github.com/edvin/healops/internal/db"
	"github.com/edvin/healops/internal/event"
	"github.com/edvin/healops/internal/ingest"
	"github.com/edvin/healops/internal/logging"
	"github.com/edvin/healops/internal/metrics"
	"github.com/edvin/healops/internal/scaling"
	"github.com/edvin/healops/internal/store"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("ingest-worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	awsCfg, err := cfg.NewAWSConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure AWS clients")
	}

	st := store.NewPostgres(pool)
	engine := core.NewEngine(st, scaling.NewECS(awsCfg, logger), logger)
	normalizer := event.NewNormalizer(cfg.AlarmRules, logger)
	consumer := ingest.NewConsumer(awsCfg, cfg.QueueURL, normalizer, engine, logger)

	metricsServer := metrics.NewServer(cfg.MetricsListenAddr)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(ctx)
	})

	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("worker failed")
	}
	logger.Info().Msg("shut down cleanly")
}
