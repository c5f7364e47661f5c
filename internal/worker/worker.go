// Package worker drains the package_jobs queue through the package pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"logoforge/internal/domain"
	"logoforge/internal/synth"
)

// DefaultPollInterval is how long an idle worker waits before polling again.
const DefaultPollInterval = 2 * time.Second

// Generator produces a complete package for one source.
type Generator interface {
	GenerateCompletePackage(ctx context.Context, raw []byte, meta domain.SourceMetadata, timeout time.Duration) (*domain.AssetPackage, error)
}

// SourceReader loads uploaded source images by storage key.
type SourceReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// Options wires a Worker.
type Options struct {
	Jobs         domain.JobRepository
	Packages     domain.PackageRepository
	Sources      SourceReader
	Generator    Generator
	Logger       zerolog.Logger
	PollInterval time.Duration
	Timeout      time.Duration
}

// Worker claims queued jobs one at a time.
type Worker struct {
	jobs         domain.JobRepository
	packages     domain.PackageRepository
	sources      SourceReader
	gen          Generator
	logger       zerolog.Logger
	pollInterval time.Duration
	timeout      time.Duration
}

// New constructs a Worker.
func New(opts Options) (*Worker, error) {
	if opts.Jobs == nil || opts.Packages == nil || opts.Generator == nil {
		return nil, errors.New("worker: jobs, packages and generator are required")
	}
	w := &Worker{
		jobs:         opts.Jobs,
		packages:     opts.Packages,
		sources:      opts.Sources,
		gen:          opts.Generator,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	return w, nil
}

// Run processes jobs until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
		}
		if processed && err == nil {
			continue
		}
		timer := time.NewTimer(w.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ProcessNext claims and handles one job. It reports false when the queue
// was empty.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.jobs.Claim(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	w.handle(ctx, job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job *domain.PackageJob) {
	logger := w.logger.With().Str("job_id", job.ID).Str("brand", job.Metadata.BrandName).Logger()
	logger.Info().Msg("worker: picked job")

	pkg, err := w.generate(ctx, job)
	if err == nil {
		if err = w.packages.Save(ctx, pkg); err != nil {
			err = fmt.Errorf("save package: %w", err)
		}
	}

	// The outcome is recorded even when ctx was canceled mid-job.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err != nil {
		logger.Error().Err(err).Msg("worker: job failed")
		if markErr := w.jobs.MarkFailed(markCtx, job.ID, err.Error()); markErr != nil {
			logger.Error().Err(markErr).Msg("worker: update status failed")
		}
		return
	}
	if markErr := w.jobs.MarkSucceeded(markCtx, job.ID, pkg.ID); markErr != nil {
		logger.Error().Err(markErr).Msg("worker: update status failed")
		return
	}
	logger.Info().Str("package_id", pkg.ID).Int("succeeded", pkg.Succeeded()).Msg("worker: job succeeded")
}

func (w *Worker) generate(ctx context.Context, job *domain.PackageJob) (*domain.AssetPackage, error) {
	raw, err := w.loadSource(ctx, job)
	if err != nil {
		return nil, err
	}
	return w.gen.GenerateCompletePackage(ctx, raw, job.Metadata, w.timeout)
}

func (w *Worker) loadSource(ctx context.Context, job *domain.PackageJob) ([]byte, error) {
	if job.SourceKey == "" {
		return synth.RenderPNG(job.Metadata, synth.DefaultSize)
	}
	if w.sources == nil {
		return nil, errors.New("worker: job has a source key but no source store is configured")
	}
	raw, err := w.sources.Read(ctx, job.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", job.SourceKey, err)
	}
	return raw, nil
}
