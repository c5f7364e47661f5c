// Package imaging holds the raster primitives shared by the variant
// generators: source validation, PNG encoding, background composition and
// aspect-preserving resizes.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"logoforge/internal/domain"
)

// MaxDimension bounds the width and height accepted for a source image.
const MaxDimension = 8192

// DecodeSource decodes and validates raw image bytes. Any failure is a
// *domain.FatalError because every branch depends on a valid source.
func DecodeSource(data []byte, meta domain.SourceMetadata) (*domain.SourceAsset, error) {
	if len(data) == 0 {
		return nil, domain.NewFatal("decode source", fmt.Errorf("%w: empty buffer", domain.ErrInvalidSource))
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewFatal("decode source", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, domain.NewFatal("decode source", fmt.Errorf("%w: dimensions %dx%d out of range", domain.ErrInvalidSource, cfg.Width, cfg.Height))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewFatal("decode source", fmt.Errorf("%w: %v", domain.ErrInvalidSource, err))
	}
	if !sourceHasAlpha(format, cfg.ColorModel, img) {
		return nil, domain.NewFatal("validate source", domain.ErrMissingAlpha)
	}
	nrgba := ToNRGBA(img)
	sum := sha256.Sum256(data)
	return &domain.SourceAsset{
		Image:    nrgba,
		Width:    nrgba.Bounds().Dx(),
		Height:   nrgba.Bounds().Dy(),
		Checksum: hex.EncodeToString(sum[:]),
		Metadata: meta,
	}, nil
}

// sourceHasAlpha decides from the declared color model of the encoded file.
// The png decoder returns *image.RGBA and *image.RGBA64 for truecolor files
// without an alpha channel, so those concrete types prove nothing. A tRNS
// chunk makes the decoder switch to the non-premultiplied types instead.
func sourceHasAlpha(format string, declared color.Model, img image.Image) bool {
	if format == "png" && (declared == color.RGBAModel || declared == color.RGBA64Model) {
		switch img.(type) {
		case *image.NRGBA, *image.NRGBA64:
			return true
		default:
			return false
		}
	}
	return HasAlpha(img)
}

// HasAlpha reports whether the image's color model carries an alpha channel.
func HasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ToNRGBA copies img into a zero-origin NRGBA buffer.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Composite alpha-composites src over an opaque canvas of the same size.
func Composite(src *image.NRGBA, background color.Color) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(out, b, src, b.Min, draw.Over)
	return out
}

// Contain scales src to fit inside a size x size transparent canvas without
// distortion and centers it.
func Contain(src image.Image, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("contain: invalid size %d", size)
	}
	sb := src.Bounds()
	if sb.Dx() <= 0 || sb.Dy() <= 0 {
		return nil, fmt.Errorf("contain: empty source")
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	w, h := fitWithin(sb.Dx(), sb.Dy(), size)
	x0 := (size - w) / 2
	y0 := (size - h) / 2
	target := image.Rect(x0, y0, x0+w, y0+h)
	xdraw.CatmullRom.Scale(canvas, target, src, sb, xdraw.Src, nil)
	return canvas, nil
}

func fitWithin(w, h, size int) (int, int) {
	if w >= h {
		scaled := (h*size + w/2) / w
		if scaled < 1 {
			scaled = 1
		}
		return size, scaled
	}
	scaled := (w*size + h/2) / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, size
}
