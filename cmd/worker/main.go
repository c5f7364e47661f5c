package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"logoforge/internal/adapter/repo"
	"logoforge/internal/bootstrap"
	"logoforge/internal/infra"
	"logoforge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	if err := infra.ApplySchema(ctx, pool, cfg.SchemaFile); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to apply schema")
	}

	runner := infra.NewSQLRunner(pool, logger)

	store, err := bootstrap.NewFileStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}
	orch, err := bootstrap.NewOrchestrator(cfg.Pipeline, store, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure pipeline")
	}

	w, err := worker.New(worker.Options{
		Jobs:      repo.NewJobRepository(runner),
		Packages:  repo.NewPackageRepository(runner),
		Sources:   store,
		Generator: orch,
		Logger:    logger,
		Timeout:   cfg.Pipeline.PackageTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid configuration")
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
