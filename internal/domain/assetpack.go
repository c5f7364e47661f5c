package domain

import (
	"fmt"
	"image"
	"time"
)

// SourceMetadata is the tagged description of a single generation request.
// It replaces the free-form session data collected by the wizard.
type SourceMetadata struct {
	BrandName        string `json:"brand_name"`
	Industry         string `json:"industry,omitempty"`
	Style            string `json:"style,omitempty"`
	Prompt           string `json:"prompt,omitempty"`
	Seed             int64  `json:"seed"`
	RequesterID      string `json:"requester_id,omitempty"`
	RequesterCountry string `json:"requester_country,omitempty"`
	Locale           string `json:"locale,omitempty"`
}

// SourceAsset is the decoded, validated source image. It is immutable once
// built and owned by exactly one generation call.
type SourceAsset struct {
	Image    *image.NRGBA
	Width    int
	Height   int
	Checksum string
	Metadata SourceMetadata
}

// ColorTag identifies a background color variant.
type ColorTag string

const (
	ColorTransparent ColorTag = "transparent"
	ColorWhite       ColorTag = "white"
	ColorBlack       ColorTag = "black"
)

// ColorTags lists color variants in package order.
var ColorTags = []ColorTag{ColorTransparent, ColorWhite, ColorBlack}

// SizeCategory enumerates device and use-case buckets for resized rasters.
type SizeCategory string

const (
	SizeFavicon SizeCategory = "favicon"
	SizeWeb     SizeCategory = "web"
	SizeSocial  SizeCategory = "social"
	SizePrint   SizeCategory = "print"
)

// SizeCategories lists categories in package order.
var SizeCategories = []SizeCategory{SizeFavicon, SizeWeb, SizeSocial, SizePrint}

var sizeTable = map[SizeCategory][]int{
	SizeFavicon: {16, 32, 48, 64},
	SizeWeb:     {192, 512},
	SizeSocial:  {400, 800, 1080},
	SizePrint:   {1000, 2000, 3000},
}

// SizesFor returns the ascending target dimensions for a category. The
// returned slice is a copy.
func SizesFor(category SizeCategory) []int {
	return append([]int(nil), sizeTable[category]...)
}

// SizeTable returns a copy of the static category to dimensions mapping.
func SizeTable() map[SizeCategory][]int {
	out := make(map[SizeCategory][]int, len(sizeTable))
	for category, sizes := range sizeTable {
		out[category] = append([]int(nil), sizes...)
	}
	return out
}

// VectorFormat enumerates vector outputs. PDF and EPS are derived from SVG.
type VectorFormat string

const (
	VectorSVG VectorFormat = "svg"
	VectorPDF VectorFormat = "pdf"
	VectorEPS VectorFormat = "eps"
)

// VectorFormats lists vector formats in package order.
var VectorFormats = []VectorFormat{VectorSVG, VectorPDF, VectorEPS}

// ContentType returns the MIME type for the vector format.
func (f VectorFormat) ContentType() string {
	switch f {
	case VectorSVG:
		return "image/svg+xml"
	case VectorPDF:
		return "application/pdf"
	case VectorEPS:
		return "application/postscript"
	default:
		return "application/octet-stream"
	}
}

// ArtifactKind groups artifacts by the branch that produces them.
type ArtifactKind string

const (
	ArtifactColor  ArtifactKind = "color"
	ArtifactSize   ArtifactKind = "size"
	ArtifactVector ArtifactKind = "vector"
)

// ArtifactStatus is the outcome recorded for every attempted artifact.
type ArtifactStatus string

const (
	StatusOK      ArtifactStatus = "ok"
	StatusFailed  ArtifactStatus = "failed"
	StatusSkipped ArtifactStatus = "skipped"
)

// ArtifactID is the identity of one derived output.
type ArtifactID struct {
	Kind      ArtifactKind `json:"kind"`
	Color     ColorTag     `json:"color,omitempty"`
	Category  SizeCategory `json:"category,omitempty"`
	Dimension int          `json:"dimension,omitempty"`
	Format    VectorFormat `json:"format,omitempty"`
}

// ColorArtifact builds the identity of a color variant.
func ColorArtifact(tag ColorTag) ArtifactID {
	return ArtifactID{Kind: ArtifactColor, Color: tag}
}

// SizeArtifact builds the identity of a size variant.
func SizeArtifact(category SizeCategory, dim int) ArtifactID {
	return ArtifactID{Kind: ArtifactSize, Category: category, Dimension: dim}
}

// VectorArtifact builds the identity of a vector artifact.
func VectorArtifact(format VectorFormat) ArtifactID {
	return ArtifactID{Kind: ArtifactVector, Format: format}
}

// String renders a stable, human readable identity such as "size/web/192".
func (id ArtifactID) String() string {
	switch id.Kind {
	case ArtifactColor:
		return fmt.Sprintf("color/%s", id.Color)
	case ArtifactSize:
		return fmt.Sprintf("size/%s/%d", id.Category, id.Dimension)
	case ArtifactVector:
		return fmt.Sprintf("vector/%s", id.Format)
	default:
		return string(id.Kind)
	}
}

// ArchivePath returns the location of the artifact inside the package archive.
func (id ArtifactID) ArchivePath() string {
	switch id.Kind {
	case ArtifactColor:
		return fmt.Sprintf("Color_Variants/%s.png", id.Color)
	case ArtifactSize:
		return fmt.Sprintf("Size_Variants/%s/logo_%dx%d.png", id.Category, id.Dimension, id.Dimension)
	case ArtifactVector:
		return fmt.Sprintf("Vector_Formats/logo.%s", id.Format)
	default:
		return ""
	}
}

// ContentType returns the MIME type of the artifact's buffer.
func (id ArtifactID) ContentType() string {
	if id.Kind == ArtifactVector {
		return id.Format.ContentType()
	}
	return "image/png"
}

// Rendered is a generated artifact before upload. Data is nil when Err is set.
type Rendered struct {
	ID     ArtifactID
	Data   []byte
	Status ArtifactStatus
	Err    error
}

// ArtifactResult is the unit collected from every branch.
type ArtifactResult struct {
	ID     ArtifactID
	Status ArtifactStatus
	URL    string
	Err    error
	Data   []byte
}

// ManifestEntry is the serialized status of one artifact.
type ManifestEntry struct {
	Artifact    string         `json:"artifact"`
	ID          ArtifactID     `json:"id"`
	Status      ArtifactStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	URL         string         `json:"url,omitempty"`
	ArchivePath string         `json:"archive_path,omitempty"`
	Bytes       int            `json:"bytes,omitempty"`
	SHA256      string         `json:"sha256,omitempty"`
}

// AssetPackage is the final deliverable returned to the caller.
type AssetPackage struct {
	ID                 string                    `json:"id"`
	Metadata           SourceMetadata            `json:"metadata"`
	TransparentPNG     string                    `json:"transparent_png,omitempty"`
	WhiteBackgroundPNG string                    `json:"white_background_png,omitempty"`
	BlackBackgroundPNG string                    `json:"black_background_png,omitempty"`
	SVG                string                    `json:"svg,omitempty"`
	PDF                string                    `json:"pdf,omitempty"`
	EPS                string                    `json:"eps,omitempty"`
	Sizes              map[SizeCategory][]string `json:"sizes"`
	ZipURL             string                    `json:"zip_url,omitempty"`
	ZipError           string                    `json:"zip_error,omitempty"`
	Manifest           []ManifestEntry           `json:"manifest"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// Succeeded counts manifest entries with status ok.
func (p *AssetPackage) Succeeded() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, entry := range p.Manifest {
		if entry.Status == StatusOK {
			n++
		}
	}
	return n
}

// Usable reports whether the package carries enough to present to a user.
// A package with no successful artifact or no archive is treated as a
// failure by the presentation layer.
func (p *AssetPackage) Usable() bool {
	return p.Succeeded() > 0 && p.ZipURL != ""
}
