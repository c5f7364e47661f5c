package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"logoforge/internal/adapter/repo"
	"logoforge/internal/bootstrap"
	"logoforge/internal/domain"
	"logoforge/internal/http/handlers"
	httpapi "logoforge/internal/http/httpapi"
	"logoforge/internal/infra"
	"logoforge/internal/infra/geoip"
	"logoforge/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Packages are persisted only when a database is configured.
	var (
		packages domain.PackageRepository
		ready    func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		if err := infra.ApplySchema(ctx, pool, cfg.SchemaFile); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		packages = repo.NewPackageRepository(infra.NewSQLRunner(pool, logger))
		ready = pool.Ping
	} else {
		logger.Warn().Msg("DATABASE_URL not set, packages are kept in memory only")
	}

	store, err := bootstrap.NewFileStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	orch, err := bootstrap.NewOrchestrator(cfg.Pipeline, store, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
		defer resolver.Close()
	}

	app := handlers.NewApp(orch, packages, logger)
	app.BaseContext = ctx
	app.Ready = ready
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		StaticDir:       store.BasePath(),
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   lookup,
		DefaultLocale:   "en",
	})

	server := infra.NewHTTPServer(cfg, router, logger)
	if err := server.Serve(ctx, app.Tasks.CancelAll); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}
