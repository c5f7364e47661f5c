// Package synth renders deterministic placeholder logos. Workers and the CLI
// fall back to it when a job carries metadata but no uploaded source.
package synth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"logoforge/internal/domain"
)

// DefaultSize is the edge length of a synthetic logo.
const DefaultSize = 1024

// Seed derives a stable hex seed from the request metadata.
func Seed(meta domain.SourceMetadata) string {
	return deterministicSeed(
		strings.ToLower(strings.TrimSpace(meta.BrandName)),
		meta.Industry,
		meta.Style,
		meta.Prompt,
		meta.Seed,
	)
}

// Render draws a square logo with a transparent background: a filled disc in
// the base color, a ring in the accent color and a diagonal band. The same
// metadata always produces the same pixels.
func Render(meta domain.SourceMetadata, size int) *image.NRGBA {
	if size <= 0 {
		size = DefaultSize
	}
	seed := Seed(meta)
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	band := colorFromSeed(seed, 2)

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	c := float64(size) / 2
	outer := c * 0.9
	inner := c * 0.72
	bandWidth := float64(maxInt(4, size/16))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-c, float64(y)+0.5-c
			d2 := dx*dx + dy*dy
			switch {
			case d2 > outer*outer:
				continue
			case d2 > inner*inner:
				img.SetNRGBA(x, y, accent)
			case abs(dx-dy) < bandWidth:
				img.SetNRGBA(x, y, band)
			default:
				img.SetNRGBA(x, y, base)
			}
		}
	}
	return img
}

// RenderPNG encodes Render's output.
func RenderPNG(meta domain.SourceMetadata, size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(meta, size)); err != nil {
		return nil, fmt.Errorf("synth: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.NRGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.NRGBA{
		R: parseHexByte(segment[0:2]),
		G: parseHexByte(segment[2:4]),
		B: parseHexByte(segment[4:6]),
		A: 255,
	}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
