// Package packaging lays out generated artifacts into the downloadable
// archive and builds the manifest that accompanies every package.
package packaging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"logoforge/internal/domain"
	"logoforge/pkg/zip"
)

const (
	ReadmeName   = "README.txt"
	ManifestName = "manifest.json"
)

// Input is the complete result set of one generation call.
type Input struct {
	Metadata    domain.SourceMetadata
	Results     []domain.ArtifactResult
	GeneratedAt time.Time
}

// Bundle is the assembled archive plus its manifest.
type Bundle struct {
	Archive  []byte
	Entries  []string
	Manifest []domain.ManifestEntry
	Readme   string
}

type manifestDocument struct {
	BrandName   string                 `json:"brand_name"`
	GeneratedAt time.Time              `json:"generated_at"`
	Succeeded   int                    `json:"succeeded"`
	Total       int                    `json:"total"`
	Artifacts   []domain.ManifestEntry `json:"artifacts"`
}

// Assembler builds archives with a fixed layout.
type Assembler struct {
	logger zerolog.Logger
}

// NewAssembler constructs an Assembler.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Assemble orders the results, builds the manifest and writes the archive.
// Only successful artifacts with data are placed in the archive; the
// manifest lists every result exactly once.
func (a *Assembler) Assemble(in Input) (*Bundle, error) {
	ordered, err := Order(in.Results)
	if err != nil {
		return nil, err
	}
	manifest := make([]domain.ManifestEntry, 0, len(ordered))
	assets := make([]zip.Asset, 0, len(ordered)+2)
	for _, res := range ordered {
		entry := domain.ManifestEntry{
			Artifact: res.ID.String(),
			ID:       res.ID,
			Status:   res.Status,
			URL:      res.URL,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		if res.Status == domain.StatusOK && len(res.Data) > 0 {
			sum := sha256.Sum256(res.Data)
			entry.ArchivePath = res.ID.ArchivePath()
			entry.Bytes = len(res.Data)
			entry.SHA256 = hex.EncodeToString(sum[:])
			assets = append(assets, zip.Asset{Filename: entry.ArchivePath, MIME: res.ID.ContentType(), Data: res.Data})
		}
		manifest = append(manifest, entry)
	}

	readme := renderReadme(in.Metadata, in.GeneratedAt, manifest)
	doc := manifestDocument{
		BrandName:   in.Metadata.BrandName,
		GeneratedAt: in.GeneratedAt.UTC(),
		Succeeded:   len(assets),
		Total:       len(manifest),
		Artifacts:   manifest,
	}
	manifestJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("packaging: encode manifest: %w", err)
	}

	files := append([]zip.Asset{
		{Filename: ReadmeName, MIME: "text/plain", Data: []byte(readme)},
		{Filename: ManifestName, MIME: "application/json", Data: manifestJSON},
	}, assets...)
	archive, err := zip.ArchiveAssets(files)
	if err != nil {
		return nil, fmt.Errorf("packaging: %w", err)
	}
	entries := make([]string, len(files))
	for i, f := range files {
		entries[i] = f.Filename
	}
	a.logger.Debug().Int("entries", len(entries)).Int("bytes", len(archive)).Msg("packaging: archive assembled")
	return &Bundle{Archive: archive, Entries: entries, Manifest: manifest, Readme: readme}, nil
}

// Order returns results sorted into package order: colors, then size
// categories with ascending dimensions, then vector formats. Duplicate
// identities are rejected.
func Order(results []domain.ArtifactResult) ([]domain.ArtifactResult, error) {
	seen := make(map[domain.ArtifactID]struct{}, len(results))
	out := make([]domain.ArtifactResult, 0, len(results))
	for _, res := range results {
		if _, dup := seen[res.ID]; dup {
			return nil, fmt.Errorf("packaging: duplicate artifact %s", res.ID)
		}
		seen[res.ID] = struct{}{}
		out = append(out, res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].ID, out[j].ID)
	})
	return out, nil
}

func less(a, b domain.ArtifactID) bool {
	ka, kb := kindRank(a.Kind), kindRank(b.Kind)
	if ka != kb {
		return ka < kb
	}
	switch a.Kind {
	case domain.ArtifactColor:
		return colorRank(a.Color) < colorRank(b.Color)
	case domain.ArtifactSize:
		ca, cb := categoryRank(a.Category), categoryRank(b.Category)
		if ca != cb {
			return ca < cb
		}
		return a.Dimension < b.Dimension
	case domain.ArtifactVector:
		return formatRank(a.Format) < formatRank(b.Format)
	}
	return false
}

func kindRank(k domain.ArtifactKind) int {
	switch k {
	case domain.ArtifactColor:
		return 0
	case domain.ArtifactSize:
		return 1
	case domain.ArtifactVector:
		return 2
	default:
		return 3
	}
}

func colorRank(tag domain.ColorTag) int {
	for i, t := range domain.ColorTags {
		if t == tag {
			return i
		}
	}
	return len(domain.ColorTags)
}

func categoryRank(c domain.SizeCategory) int {
	for i, cat := range domain.SizeCategories {
		if cat == c {
			return i
		}
	}
	return len(domain.SizeCategories)
}

func formatRank(f domain.VectorFormat) int {
	for i, v := range domain.VectorFormats {
		if v == f {
			return i
		}
	}
	return len(domain.VectorFormats)
}
