package variants

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"logoforge/internal/domain"
	"logoforge/internal/imaging"
)

var backgrounds = map[domain.ColorTag]color.Color{
	domain.ColorWhite: color.White,
	domain.ColorBlack: color.Black,
}

// ColorGenerator produces the transparent, white and black variants.
type ColorGenerator struct {
	encode Encoder
	logger zerolog.Logger
}

// NewColorGenerator constructs a generator that encodes variants as PNG.
func NewColorGenerator(logger zerolog.Logger) *ColorGenerator {
	return &ColorGenerator{encode: defaultEncoder, logger: logger}
}

// WithEncoder replaces the encoder, mainly for tests.
func (g *ColorGenerator) WithEncoder(enc Encoder) *ColorGenerator {
	g.encode = enc
	return g
}

// Targets lists the identities this generator always reports.
func (g *ColorGenerator) Targets() []domain.ArtifactID {
	out := make([]domain.ArtifactID, 0, len(domain.ColorTags))
	for _, tag := range domain.ColorTags {
		out = append(out, domain.ColorArtifact(tag))
	}
	return out
}

// Generate renders every color variant concurrently. Each variant fails
// independently; emit is called exactly once per tag.
func (g *ColorGenerator) Generate(ctx context.Context, src *domain.SourceAsset, emit Emitter) {
	var group errgroup.Group
	for _, tag := range domain.ColorTags {
		group.Go(func() error {
			id := domain.ColorArtifact(tag)
			if ctx.Err() != nil {
				emit(ctx, interrupted(ctx, id))
				return nil
			}
			data, err := g.render(src.Image, tag)
			if err != nil {
				g.logger.Warn().Err(err).Str("artifact", id.String()).Msg("variants: color variant failed")
				emit(ctx, failed(id, err))
				return nil
			}
			emit(ctx, ok(id, data))
			return nil
		})
	}
	_ = group.Wait()
}

func (g *ColorGenerator) render(src *image.NRGBA, tag domain.ColorTag) ([]byte, error) {
	var img image.Image = src
	if tag != domain.ColorTransparent {
		bg, found := backgrounds[tag]
		if !found {
			return nil, fmt.Errorf("color %q: unknown background", tag)
		}
		img = imaging.Composite(src, bg)
	}
	data, err := g.encode(img)
	if err != nil {
		return nil, fmt.Errorf("color %q: %w", tag, err)
	}
	return data, nil
}
