// Package bootstrap wires the package pipeline from configuration for the
// cmd entry points.
package bootstrap

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"logoforge/internal/infra"
	"logoforge/internal/pipeline"
	"logoforge/internal/storage"
	"logoforge/internal/variants"
	"logoforge/internal/vector"
)

// VectorConfig translates the pipeline settings into a vector tool chain.
// Unset commands keep the built-in vtracer and rsvg-convert templates.
func VectorConfig(cfg infra.PipelineConfig) vector.Config {
	vc := vector.DefaultConfig()
	if cfg.TraceCommand != "" {
		vc.Trace = vector.ParseCommand(cfg.TraceCommand)
	}
	if cfg.ConvertCommand != "" {
		vc.Convert = vector.ParseCommand(cfg.ConvertCommand)
	}
	if cfg.VectorTimeout > 0 {
		vc.Timeout = cfg.VectorTimeout
	}
	vc.WorkDir = cfg.WorkspaceDir
	return vc
}

// NewFileStore opens the configured storage directory, resolving relative
// paths against the working directory.
func NewFileStore(cfg *infra.Config) (*storage.FileStore, error) {
	path := cfg.StoragePath
	if path == "" {
		path = "./storage"
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return storage.NewFileStore(path, cfg.StorageBaseURL)
}

// NewOrchestrator builds an orchestrator that uploads through up. A nil
// runner executes the real tools.
func NewOrchestrator(cfg infra.PipelineConfig, up storage.Uploader, runner vector.Runner, logger zerolog.Logger) (*pipeline.Orchestrator, error) {
	return pipeline.New(OrchestratorOptions(cfg, up, runner, logger))
}

// OrchestratorOptions maps the pipeline settings onto orchestrator options.
func OrchestratorOptions(cfg infra.PipelineConfig, up storage.Uploader, runner vector.Runner, logger zerolog.Logger) pipeline.Options {
	return pipeline.Options{
		Uploader:        up,
		Colors:          variants.NewColorGenerator(logger),
		Sizes:           variants.NewSizeGenerator(cfg.SizeWorkers, logger),
		Vectors:         vector.NewConverter(VectorConfig(cfg), runner, logger),
		Logger:          logger,
		MaxUploads:      cfg.UploadMaxInFlight,
		CancelGrace:     cfg.CancelGrace,
		FinalizeTimeout: cfg.FinalizeTimeout,
	}
}
