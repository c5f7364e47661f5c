package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"logoforge/internal/domain"
	"logoforge/internal/packaging"
	"logoforge/internal/storage"
	"logoforge/internal/variants"
	"logoforge/internal/vector"
	"logoforge/pkg/zip"
)

type memUploader struct {
	mu          sync.Mutex
	objects     map[string][]byte
	calls       map[string]int
	inflight    int
	maxInflight int
	delay       time.Duration
	fail        func(key string, attempt int) error
}

func newMemUploader() *memUploader {
	return &memUploader{objects: make(map[string][]byte), calls: make(map[string]int)}
}

func (m *memUploader) UploadBuffer(ctx context.Context, data []byte, opts storage.UploadOptions) (string, error) {
	m.mu.Lock()
	m.calls[opts.Key]++
	attempt := m.calls[opts.Key]
	m.inflight++
	if m.inflight > m.maxInflight {
		m.maxInflight = m.inflight
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inflight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.fail != nil {
		if err := m.fail(opts.Key, attempt); err != nil {
			return "", &domain.StorageError{Key: opts.Key, Err: err}
		}
	}
	m.mu.Lock()
	m.objects[opts.Key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return "mem://" + opts.Key, nil
}

func (m *memUploader) object(suffix string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, data := range m.objects {
		if strings.HasSuffix(key, suffix) {
			return data
		}
	}
	return nil
}

func (m *memUploader) callsFor(suffix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, c := range m.calls {
		if strings.HasSuffix(key, suffix) {
			n += c
		}
	}
	return n
}

type toolRunner struct {
	mu    sync.Mutex
	calls int
	hang  bool
	fail  bool
}

func (r *toolRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.fail {
		return errors.New("exit status 1")
	}
	return os.WriteFile(args[len(args)-1], []byte("<svg/>"), 0o600)
}

func (r *toolRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func vectorConfig(t *testing.T, timeout time.Duration) vector.Config {
	return vector.Config{
		Trace:   vector.Command{Name: "trace", Args: []string{"{input}", "{output}"}},
		Convert: vector.Command{Name: "convert", Args: []string{"{format}", "{input}", "{output}"}},
		Timeout: timeout,
		WorkDir: t.TempDir(),
	}
}

func logoPNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := size / 2
	r2 := (size / 3) * (size / 3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x-c)*(x-c)+(y-c)*(y-c) <= r2 {
				img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 90, B: 200, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fastSizes skips real resampling and encoding so tests focus on scheduling.
func fastSizes() *variants.SizeGenerator {
	return variants.NewSizeGenerator(4, zerolog.Nop()).
		WithResizer(func(src image.Image, size int) (*image.NRGBA, error) {
			return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
		}).
		WithEncoder(func(img image.Image) ([]byte, error) {
			return []byte("png"), nil
		})
}

func newOrchestrator(t *testing.T, up storage.Uploader, runner vector.Runner, opts Options) *Orchestrator {
	t.Helper()
	opts.Uploader = up
	if opts.Vectors == nil {
		opts.Vectors = vector.NewConverter(vectorConfig(t, time.Second), runner, zerolog.Nop())
	}
	orch, err := New(opts)
	require.NoError(t, err)
	return orch
}

func statusCounts(pkg *domain.AssetPackage) map[domain.ArtifactKind]map[domain.ArtifactStatus]int {
	out := map[domain.ArtifactKind]map[domain.ArtifactStatus]int{}
	for _, entry := range pkg.Manifest {
		if out[entry.ID.Kind] == nil {
			out[entry.ID.Kind] = map[domain.ArtifactStatus]int{}
		}
		out[entry.ID.Kind][entry.Status]++
	}
	return out
}

func TestGenerateCompletePackageEndToEnd(t *testing.T) {
	up := newMemUploader()
	runner := &toolRunner{}
	orch := newOrchestrator(t, up, runner, Options{})

	pkg, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 1024), domain.SourceMetadata{BrandName: "TechCorp", Seed: 42}, time.Minute)
	require.NoError(t, err)

	counts := statusCounts(pkg)
	require.Equal(t, 3, counts[domain.ArtifactColor][domain.StatusOK])
	require.Equal(t, 12, counts[domain.ArtifactSize][domain.StatusOK])
	require.Equal(t, 3, counts[domain.ArtifactVector][domain.StatusOK])
	require.Len(t, pkg.Manifest, 18)

	require.Len(t, pkg.Sizes[domain.SizeFavicon], 4)
	require.Len(t, pkg.Sizes[domain.SizeWeb], 2)
	require.Len(t, pkg.Sizes[domain.SizeSocial], 3)
	require.Len(t, pkg.Sizes[domain.SizePrint], 3)
	require.True(t, strings.HasSuffix(pkg.Sizes[domain.SizeFavicon][0], "logo_16x16.png"))
	require.NotEmpty(t, pkg.TransparentPNG)
	require.NotEmpty(t, pkg.WhiteBackgroundPNG)
	require.NotEmpty(t, pkg.BlackBackgroundPNG)
	require.NotEmpty(t, pkg.SVG)
	require.NotEmpty(t, pkg.ZipURL)
	require.True(t, strings.HasSuffix(pkg.ZipURL, "techcorp_logo_package.zip"))
	require.True(t, pkg.Usable())
	require.Equal(t, 3, runner.count())

	archive := up.object("techcorp_logo_package.zip")
	require.NotNil(t, archive)
	names, err := zip.EntryNames(archive)
	require.NoError(t, err)
	require.Equal(t, packaging.ReadmeName, names[0])
	for _, want := range []string{
		"Color_Variants/transparent.png",
		"Size_Variants/favicon/logo_16x16.png",
		"Size_Variants/favicon/logo_32x32.png",
		"Size_Variants/favicon/logo_48x48.png",
		"Size_Variants/favicon/logo_64x64.png",
		"Vector_Formats/logo.svg",
	} {
		require.Contains(t, names, want)
	}

	favicon := up.object("Size_Variants/favicon/logo_48x48.png")
	img, err := png.Decode(bytes.NewReader(favicon))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 48, 48), img.Bounds())
}

func TestGenerateCompletePackageSurvivesHangingVectorTool(t *testing.T) {
	up := newMemUploader()
	runner := &toolRunner{hang: true}
	orch := newOrchestrator(t, up, runner, Options{
		Sizes:   fastSizes(),
		Vectors: vector.NewConverter(vectorConfig(t, time.Minute), runner, zerolog.Nop()),
	})

	timeout := 300 * time.Millisecond
	start := time.Now()
	pkg, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 64), domain.SourceMetadata{BrandName: "Hang"}, timeout)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Less(t, elapsed, timeout+2*time.Second)

	require.Equal(t, 1, runner.count(), "derived formats must not run")
	counts := statusCounts(pkg)
	require.Equal(t, 3, counts[domain.ArtifactColor][domain.StatusOK])
	require.Equal(t, 12, counts[domain.ArtifactSize][domain.StatusOK])
	require.Equal(t, 1, counts[domain.ArtifactVector][domain.StatusFailed])
	require.Equal(t, 2, counts[domain.ArtifactVector][domain.StatusSkipped])
	for _, entry := range pkg.Manifest {
		if entry.ID == domain.VectorArtifact(domain.VectorSVG) {
			require.Contains(t, entry.Error, "timed out")
		}
	}
	require.Empty(t, pkg.SVG)
	require.NotEmpty(t, pkg.ZipURL, "archive upload runs after the deadline")
}

func TestGenerateCompletePackageSkipsDerivedFormatsOnTraceFailure(t *testing.T) {
	runner := &toolRunner{fail: true}
	orch := newOrchestrator(t, newMemUploader(), runner, Options{Sizes: fastSizes()})
	pkg, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 32), domain.SourceMetadata{BrandName: "NoVector"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, runner.count())
	var skipped int
	for _, entry := range pkg.Manifest {
		if entry.Status == domain.StatusSkipped {
			skipped++
			require.Contains(t, entry.Error, "requires vector/svg")
		}
	}
	require.Equal(t, 2, skipped)
}

func TestGenerateCompletePackageRejectsInvalidSource(t *testing.T) {
	up := newMemUploader()
	runner := &toolRunner{}
	orch := newOrchestrator(t, up, runner, Options{})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16))))
	_, err := orch.GenerateCompletePackage(context.Background(), buf.Bytes(), domain.SourceMetadata{}, time.Minute)
	require.True(t, domain.IsFatal(err))
	require.ErrorIs(t, err, domain.ErrMissingAlpha)

	_, err = orch.GenerateCompletePackage(context.Background(), []byte("junk"), domain.SourceMetadata{}, time.Minute)
	require.ErrorIs(t, err, domain.ErrInvalidSource)
	require.Zero(t, runner.count())
	require.Empty(t, up.object(""))
}

func TestGenerateCompletePackageFailsWhenNothingSurvives(t *testing.T) {
	up := newMemUploader()
	up.fail = func(key string, attempt int) error { return errors.New("bucket offline") }
	orch := newOrchestrator(t, up, &toolRunner{}, Options{Sizes: fastSizes()})

	pkg, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 32), domain.SourceMetadata{BrandName: "Down"}, time.Minute)
	require.Nil(t, pkg)
	require.True(t, domain.IsFatal(err))
	require.ErrorIs(t, err, domain.ErrEmptyPackage)
	require.Equal(t, 2, up.callsFor("Color_Variants/white.png"), "uploads are retried exactly once")
}

func TestGenerateCompletePackageRetriesUploadOnce(t *testing.T) {
	up := newMemUploader()
	up.fail = func(key string, attempt int) error {
		if strings.HasSuffix(key, "white.png") && attempt == 1 {
			return errors.New("transient")
		}
		if strings.HasSuffix(key, "black.png") {
			return errors.New("permanent")
		}
		return nil
	}
	orch := newOrchestrator(t, up, &toolRunner{}, Options{Sizes: fastSizes()})
	pkg, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 32), domain.SourceMetadata{BrandName: "Retry"}, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, pkg.WhiteBackgroundPNG)
	require.Empty(t, pkg.BlackBackgroundPNG)
	require.Equal(t, 2, up.callsFor("white.png"))
	require.Equal(t, 2, up.callsFor("black.png"))

	for _, entry := range pkg.Manifest {
		if entry.ID == domain.ColorArtifact(domain.ColorBlack) {
			require.Equal(t, domain.StatusFailed, entry.Status)
			require.Contains(t, entry.Error, "permanent")
		}
	}
	names, err := zip.EntryNames(up.object("retry_logo_package.zip"))
	require.NoError(t, err)
	require.NotContains(t, names, "Color_Variants/black.png")
}

func TestGenerateCompletePackageBoundsUploadConcurrency(t *testing.T) {
	up := newMemUploader()
	up.delay = 10 * time.Millisecond
	orch := newOrchestrator(t, up, &toolRunner{}, Options{Sizes: fastSizes(), MaxUploads: 2})
	_, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 32), domain.SourceMetadata{BrandName: "Bounded"}, time.Minute)
	require.NoError(t, err)
	require.LessOrEqual(t, up.maxInflight, 2)
	require.Greater(t, up.maxInflight, 0)
}

func TestGenerateCompletePackageManifestListsEveryArtifactOnce(t *testing.T) {
	orch := newOrchestrator(t, newMemUploader(), &toolRunner{}, Options{Sizes: fastSizes()})
	pkg, err := orch.GenerateCompletePackage(context.Background(), logoPNG(t, 32), domain.SourceMetadata{BrandName: "Once"}, time.Minute)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, entry := range pkg.Manifest {
		require.False(t, seen[entry.Artifact], "duplicate %s", entry.Artifact)
		seen[entry.Artifact] = true
	}
	require.Len(t, seen, 18)
}

func TestSlug(t *testing.T) {
	require.Equal(t, "techcorp", slug("TechCorp"))
	require.Equal(t, "kopi_senja_co", slug("  Kopi Senja & Co. "))
	require.Equal(t, "brand", slug("***"))
}
