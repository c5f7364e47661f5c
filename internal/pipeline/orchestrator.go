// Package pipeline coordinates complete asset package generation: it decodes
// the source once, fans out to the color, size and vector branches, uploads
// artifacts as they finish and assembles the final archive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"logoforge/internal/domain"
	"logoforge/internal/imaging"
	"logoforge/internal/packaging"
	"logoforge/internal/storage"
	"logoforge/internal/variants"
	"logoforge/internal/vector"
)

const (
	DefaultTimeout         = 2 * time.Minute
	DefaultCancelGrace     = 5 * time.Second
	DefaultFinalizeTimeout = 30 * time.Second
	DefaultKeyPrefix       = "logos"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	Uploader  storage.Uploader
	Colors    *variants.ColorGenerator
	Sizes     *variants.SizeGenerator
	Vectors   *vector.Converter
	Assembler *packaging.Assembler
	Logger    zerolog.Logger

	// MaxUploads bounds in-flight uploads; callers beyond it queue.
	MaxUploads int
	// CancelGrace is how long branches get to wind down after the deadline.
	CancelGrace time.Duration
	// FinalizeTimeout bounds archive upload after the branches joined.
	FinalizeTimeout time.Duration
	KeyPrefix       string
	Now             func() time.Time
}

// Orchestrator is the public entry point for package generation.
type Orchestrator struct {
	uploader        storage.Uploader
	colors          *variants.ColorGenerator
	sizes           *variants.SizeGenerator
	vectors         *vector.Converter
	assembler       *packaging.Assembler
	logger          zerolog.Logger
	maxUploads      int
	cancelGrace     time.Duration
	finalizeTimeout time.Duration
	keyPrefix       string
	now             func() time.Time
}

// New validates opts and fills defaults for the optional collaborators.
func New(opts Options) (*Orchestrator, error) {
	if opts.Uploader == nil {
		return nil, errors.New("pipeline: uploader is required")
	}
	o := &Orchestrator{
		uploader:        opts.Uploader,
		colors:          opts.Colors,
		sizes:           opts.Sizes,
		vectors:         opts.Vectors,
		assembler:       opts.Assembler,
		logger:          opts.Logger,
		maxUploads:      opts.MaxUploads,
		cancelGrace:     opts.CancelGrace,
		finalizeTimeout: opts.FinalizeTimeout,
		keyPrefix:       strings.Trim(opts.KeyPrefix, "/"),
		now:             opts.Now,
	}
	if o.colors == nil {
		o.colors = variants.NewColorGenerator(opts.Logger)
	}
	if o.sizes == nil {
		o.sizes = variants.NewSizeGenerator(variants.DefaultSizeWorkers, opts.Logger)
	}
	if o.vectors == nil {
		o.vectors = vector.NewConverter(vector.DefaultConfig(), nil, opts.Logger)
	}
	if o.assembler == nil {
		o.assembler = packaging.NewAssembler(opts.Logger)
	}
	if o.maxUploads <= 0 {
		o.maxUploads = DefaultMaxUploads
	}
	if o.cancelGrace <= 0 {
		o.cancelGrace = DefaultCancelGrace
	}
	if o.finalizeTimeout <= 0 {
		o.finalizeTimeout = DefaultFinalizeTimeout
	}
	if o.keyPrefix == "" {
		o.keyPrefix = DefaultKeyPrefix
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// GenerateCompletePackage builds the full deliverable for one source image.
// The only error it returns is a *domain.FatalError: the source could not be
// decoded or validated, or no artifact survived. Partial failures and
// timeouts are recorded in the manifest instead.
func (o *Orchestrator) GenerateCompletePackage(ctx context.Context, raw []byte, meta domain.SourceMetadata, timeout time.Duration) (*domain.AssetPackage, error) {
	return o.generate(ctx, uuid.NewString(), raw, meta, timeout)
}

func (o *Orchestrator) generate(ctx context.Context, packageID string, raw []byte, meta domain.SourceMetadata, timeout time.Duration) (*domain.AssetPackage, error) {
	logger := o.logger.With().Str("package_id", packageID).Str("brand", meta.BrandName).Logger()
	started := o.now()

	src, err := imaging.DecodeSource(raw, meta)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline: source rejected")
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	prefix := fmt.Sprintf("%s/%s", o.keyPrefix, src.Checksum[:16])

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	up := newBoundedUploader(o.uploader, o.maxUploads, logger)
	branches := []struct {
		name      string
		targets   []domain.ArtifactID
		collector *collector
		run       func(ctx context.Context, emit func(context.Context, domain.Rendered))
	}{
		{"color", o.colors.Targets(), newCollector(), func(ctx context.Context, emit func(context.Context, domain.Rendered)) {
			o.colors.Generate(ctx, src, emit)
		}},
		{"size", o.sizes.Targets(), newCollector(), func(ctx context.Context, emit func(context.Context, domain.Rendered)) {
			o.sizes.Generate(ctx, src, emit)
		}},
		{"vector", o.vectors.Targets(), newCollector(), func(ctx context.Context, emit func(context.Context, domain.Rendered)) {
			o.vectors.Convert(ctx, src, emit)
		}},
	}

	var wg sync.WaitGroup
	for _, branch := range branches {
		col := branch.collector
		emit := func(ctx context.Context, r domain.Rendered) {
			res := domain.ArtifactResult{ID: r.ID, Status: r.Status, Err: r.Err}
			if r.Status == domain.StatusOK {
				url, err := up.upload(ctx, r.Data, storage.UploadOptions{
					Key:         prefix + "/" + r.ID.ArchivePath(),
					ContentType: r.ID.ContentType(),
				})
				if err != nil {
					logger.Warn().Err(err).Str("artifact", r.ID.String()).Msg("pipeline: artifact upload failed")
					res.Status = domain.StatusFailed
					res.Err = err
				} else {
					res.URL = url
					res.Data = r.Data
				}
			}
			col.add(res)
		}
		wg.Add(1)
		go func(run func(context.Context, func(context.Context, domain.Rendered)), name string) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().Interface("panic", rec).Str("branch", name).Msg("pipeline: branch panicked")
				}
			}()
			run(runCtx, emit)
		}(branch.run, branch.name)
	}

	o.join(runCtx, &wg, logger)

	var results []domain.ArtifactResult
	for _, branch := range branches {
		got := branch.collector.seal()
		results = append(results, fillMissing(runCtx, branch.targets, got)...)
	}

	succeeded := 0
	for _, res := range results {
		if res.Status == domain.StatusOK {
			succeeded++
		}
	}
	if succeeded == 0 {
		err := domain.NewFatal("generate package", domain.ErrEmptyPackage)
		logger.Error().Err(err).Int("attempted", len(results)).Msg("pipeline: every artifact failed")
		return nil, err
	}

	bundle, err := o.assembler.Assemble(packaging.Input{Metadata: meta, Results: results, GeneratedAt: started})
	if err != nil {
		return nil, domain.NewFatal("assemble package", err)
	}

	pkg := buildPackage(packageID, meta, bundle.Manifest, started)

	finalizeCtx, cancelFinalize := context.WithTimeout(context.WithoutCancel(ctx), o.finalizeTimeout)
	defer cancelFinalize()
	zipKey := fmt.Sprintf("%s/%s_logo_package.zip", prefix, slug(meta.BrandName))
	zipURL, err := up.upload(finalizeCtx, bundle.Archive, storage.UploadOptions{Key: zipKey, ContentType: "application/zip"})
	if err != nil {
		logger.Warn().Err(err).Msg("pipeline: archive upload failed")
		pkg.ZipError = err.Error()
	} else {
		pkg.ZipURL = zipURL
	}

	logger.Info().
		Int("succeeded", succeeded).
		Int("attempted", len(results)).
		Bool("zip", pkg.ZipURL != "").
		Dur("elapsed", o.now().Sub(started)).
		Msg("pipeline: package generated")
	return pkg, nil
}

// join waits for every branch. After the deadline the branches get
// cancelGrace to observe cancellation before their results are abandoned.
func (o *Orchestrator) join(runCtx context.Context, wg *sync.WaitGroup, logger zerolog.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return
	case <-runCtx.Done():
	}
	grace := time.NewTimer(o.cancelGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		logger.Warn().Dur("grace", o.cancelGrace).Msg("pipeline: branches did not stop after deadline, abandoning them")
	}
}

// fillMissing guarantees one result per target: anything a branch never
// reported is recorded as failed.
func fillMissing(ctx context.Context, targets []domain.ArtifactID, got []domain.ArtifactResult) []domain.ArtifactResult {
	seen := make(map[domain.ArtifactID]struct{}, len(got))
	for _, res := range got {
		seen[res.ID] = struct{}{}
	}
	for _, id := range targets {
		if _, ok := seen[id]; ok {
			continue
		}
		var err error = fmt.Errorf("%s: not completed", id)
		if ctx.Err() != nil {
			err = contextFailure(ctx.Err(), id.String())
		}
		got = append(got, domain.ArtifactResult{ID: id, Status: domain.StatusFailed, Err: err})
	}
	return got
}

func buildPackage(id string, meta domain.SourceMetadata, manifest []domain.ManifestEntry, createdAt time.Time) *domain.AssetPackage {
	pkg := &domain.AssetPackage{
		ID:        id,
		Metadata:  meta,
		Sizes:     make(map[domain.SizeCategory][]string, len(domain.SizeCategories)),
		Manifest:  manifest,
		CreatedAt: createdAt.UTC(),
	}
	for _, category := range domain.SizeCategories {
		pkg.Sizes[category] = []string{}
	}
	for _, entry := range manifest {
		if entry.Status != domain.StatusOK {
			continue
		}
		switch entry.ID.Kind {
		case domain.ArtifactColor:
			switch entry.ID.Color {
			case domain.ColorTransparent:
				pkg.TransparentPNG = entry.URL
			case domain.ColorWhite:
				pkg.WhiteBackgroundPNG = entry.URL
			case domain.ColorBlack:
				pkg.BlackBackgroundPNG = entry.URL
			}
		case domain.ArtifactSize:
			pkg.Sizes[entry.ID.Category] = append(pkg.Sizes[entry.ID.Category], entry.URL)
		case domain.ArtifactVector:
			switch entry.ID.Format {
			case domain.VectorSVG:
				pkg.SVG = entry.URL
			case domain.VectorPDF:
				pkg.PDF = entry.URL
			case domain.VectorEPS:
				pkg.EPS = entry.URL
			}
		}
	}
	return pkg
}

func slug(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "brand"
	}
	return out
}
