// Package variants derives raster artifacts from a validated source: solid
// background color variants and the square size matrix.
package variants

import (
	"context"
	"errors"
	"image"

	"logoforge/internal/domain"
	"logoforge/internal/imaging"
)

// Emitter receives each artifact as soon as it has been rendered. It may be
// called concurrently.
type Emitter func(ctx context.Context, r domain.Rendered)

// Encoder turns a raster into a file buffer.
type Encoder func(img image.Image) ([]byte, error)

func defaultEncoder(img image.Image) ([]byte, error) {
	return imaging.EncodePNG(img)
}

func ok(id domain.ArtifactID, data []byte) domain.Rendered {
	return domain.Rendered{ID: id, Data: data, Status: domain.StatusOK}
}

func failed(id domain.ArtifactID, err error) domain.Rendered {
	return domain.Rendered{ID: id, Status: domain.StatusFailed, Err: err}
}

// interrupted builds the result for an artifact whose work never started
// because the call context ended.
func interrupted(ctx context.Context, id domain.ArtifactID) domain.Rendered {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failed(id, &domain.TimeoutError{Op: id.String()})
	}
	return failed(id, ctx.Err())
}
