package variants

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"logoforge/internal/domain"
	"logoforge/internal/imaging"
)

// DefaultSizeWorkers bounds concurrent resizes when no value is configured.
const DefaultSizeWorkers = 4

// Resizer scales a source onto a square canvas.
type Resizer func(src image.Image, size int) (*image.NRGBA, error)

// SizeGenerator produces the category by dimension resize matrix.
type SizeGenerator struct {
	workers int
	resize  Resizer
	encode  Encoder
	logger  zerolog.Logger
}

// NewSizeGenerator constructs a generator running at most workers resizes at
// a time.
func NewSizeGenerator(workers int, logger zerolog.Logger) *SizeGenerator {
	if workers <= 0 {
		workers = DefaultSizeWorkers
	}
	return &SizeGenerator{
		workers: workers,
		resize:  imaging.Contain,
		encode:  defaultEncoder,
		logger:  logger,
	}
}

// WithResizer replaces the resize function, mainly for tests.
func (g *SizeGenerator) WithResizer(r Resizer) *SizeGenerator {
	g.resize = r
	return g
}

// WithEncoder replaces the encoder, mainly for tests.
func (g *SizeGenerator) WithEncoder(enc Encoder) *SizeGenerator {
	g.encode = enc
	return g
}

// Targets lists every (category, dimension) pair in package order.
func (g *SizeGenerator) Targets() []domain.ArtifactID {
	var out []domain.ArtifactID
	for _, category := range domain.SizeCategories {
		for _, dim := range domain.SizesFor(category) {
			out = append(out, domain.SizeArtifact(category, dim))
		}
	}
	return out
}

// Generate renders every size independently. A failing size never affects
// its siblings; emit is called exactly once per target.
func (g *SizeGenerator) Generate(ctx context.Context, src *domain.SourceAsset, emit Emitter) {
	var group errgroup.Group
	group.SetLimit(g.workers)
	for _, id := range g.Targets() {
		group.Go(func() error {
			if ctx.Err() != nil {
				emit(ctx, interrupted(ctx, id))
				return nil
			}
			data, err := g.render(src.Image, id.Dimension)
			if err != nil {
				g.logger.Warn().Err(err).Str("artifact", id.String()).Msg("variants: size variant failed")
				emit(ctx, failed(id, err))
				return nil
			}
			emit(ctx, ok(id, data))
			return nil
		})
	}
	_ = group.Wait()
}

func (g *SizeGenerator) render(src image.Image, dim int) ([]byte, error) {
	img, err := g.resize(src, dim)
	if err != nil {
		return nil, fmt.Errorf("resize %dx%d: %w", dim, dim, err)
	}
	if b := img.Bounds(); b.Dx() != dim || b.Dy() != dim {
		return nil, fmt.Errorf("resize %dx%d: produced %dx%d", dim, dim, b.Dx(), b.Dy())
	}
	return g.encode(img)
}
