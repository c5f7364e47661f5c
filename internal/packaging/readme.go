package packaging

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"logoforge/internal/domain"
)

type readmeStrings struct {
	title     string
	industry  string
	style     string
	generated string
	contents  string
	missing   string
	colors    string
	sizes     string
	vectors   string
	none      string
	usage     []string
}

var readmeLocales = []language.Tag{language.English, language.Indonesian}

var readmeMatcher = language.NewMatcher(readmeLocales)

var readmeText = []readmeStrings{
	{
		title:     "Logo Package",
		industry:  "Industry",
		style:     "Style",
		generated: "Generated",
		contents:  "Contents",
		missing:   "Not included",
		colors:    "Color variants",
		sizes:     "Size variants",
		vectors:   "Vector formats",
		none:      "none",
		usage: []string{
			"Color_Variants: full size PNG on transparent, white and black backgrounds.",
			"Size_Variants: square PNG files for favicons, web, social media and print.",
			"Vector_Formats: scalable SVG, PDF and EPS traced from the original artwork.",
		},
	},
	{
		title:     "Paket Logo",
		industry:  "Industri",
		style:     "Gaya",
		generated: "Dibuat",
		contents:  "Isi",
		missing:   "Tidak disertakan",
		colors:    "Varian warna",
		sizes:     "Varian ukuran",
		vectors:   "Format vektor",
		none:      "tidak ada",
		usage: []string{
			"Color_Variants: PNG ukuran penuh dengan latar transparan, putih dan hitam.",
			"Size_Variants: PNG persegi untuk favicon, web, media sosial dan cetak.",
			"Vector_Formats: SVG, PDF dan EPS yang dapat diskalakan dari karya asli.",
		},
	},
}

func stringsFor(locale string) readmeStrings {
	if strings.TrimSpace(locale) == "" {
		return readmeText[0]
	}
	_, idx := language.MatchStrings(readmeMatcher, locale)
	if idx < 0 || idx >= len(readmeText) {
		idx = 0
	}
	return readmeText[idx]
}

// brandTitle title-cases the brand name without lowering existing capitals,
// so "techCorp" becomes "TechCorp".
func brandTitle(name, locale string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Brand"
	}
	tag := language.Und
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return cases.Title(tag, cases.NoLower).String(name)
}

func renderReadme(meta domain.SourceMetadata, generatedAt time.Time, manifest []domain.ManifestEntry) string {
	text := stringsFor(meta.Locale)
	var b strings.Builder

	heading := fmt.Sprintf("%s %s", brandTitle(meta.BrandName, meta.Locale), text.title)
	b.WriteString(heading + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(heading))) + "\n\n")
	if meta.Industry != "" {
		fmt.Fprintf(&b, "%s: %s\n", text.industry, meta.Industry)
	}
	if meta.Style != "" {
		fmt.Fprintf(&b, "%s: %s\n", text.style, meta.Style)
	}
	if !generatedAt.IsZero() {
		fmt.Fprintf(&b, "%s: %s\n", text.generated, generatedAt.UTC().Format(time.RFC3339))
	}

	var colors, vectors []string
	sizes := make(map[domain.SizeCategory][]string)
	var missing []domain.ManifestEntry
	for _, entry := range manifest {
		if entry.Status != domain.StatusOK || entry.ArchivePath == "" {
			missing = append(missing, entry)
			continue
		}
		switch entry.ID.Kind {
		case domain.ArtifactColor:
			colors = append(colors, string(entry.ID.Color))
		case domain.ArtifactSize:
			sizes[entry.ID.Category] = append(sizes[entry.ID.Category], fmt.Sprintf("%dx%d", entry.ID.Dimension, entry.ID.Dimension))
		case domain.ArtifactVector:
			vectors = append(vectors, strings.ToUpper(string(entry.ID.Format)))
		}
	}

	fmt.Fprintf(&b, "\n%s\n%s\n", text.contents, strings.Repeat("-", len([]rune(text.contents))))
	fmt.Fprintf(&b, "%s: %s\n", text.colors, joinOr(colors, text.none))
	fmt.Fprintf(&b, "%s:\n", text.sizes)
	for _, category := range domain.SizeCategories {
		fmt.Fprintf(&b, "  %-8s %s\n", category, joinOr(sizes[category], text.none))
	}
	fmt.Fprintf(&b, "%s: %s\n\n", text.vectors, joinOr(vectors, text.none))
	for _, line := range text.usage {
		b.WriteString(line + "\n")
	}

	if len(missing) > 0 {
		fmt.Fprintf(&b, "\n%s\n%s\n", text.missing, strings.Repeat("-", len([]rune(text.missing))))
		for _, entry := range missing {
			if entry.Error != "" {
				fmt.Fprintf(&b, "%s (%s): %s\n", entry.Artifact, entry.Status, entry.Error)
			} else {
				fmt.Fprintf(&b, "%s (%s)\n", entry.Artifact, entry.Status)
			}
		}
	}
	return b.String()
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
