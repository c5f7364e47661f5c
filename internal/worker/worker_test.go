package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"logoforge/internal/domain"
)

type stubJobs struct {
	mu        sync.Mutex
	queue     []*domain.PackageJob
	claimErr  error
	succeeded map[string]string
	failed    map[string]string
}

func newStubJobs(jobs ...*domain.PackageJob) *stubJobs {
	return &stubJobs{queue: jobs, succeeded: map[string]string{}, failed: map[string]string{}}
}

func (s *stubJobs) Enqueue(ctx context.Context, meta domain.SourceMetadata, sourceKey string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubJobs) Claim(ctx context.Context) (*domain.PackageJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	if len(s.queue) == 0 {
		return nil, domain.ErrNotFound
	}
	job := s.queue[0]
	s.queue = s.queue[1:]
	return job, nil
}

func (s *stubJobs) MarkSucceeded(ctx context.Context, jobID, packageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded[jobID] = packageID
	return nil
}

func (s *stubJobs) MarkFailed(ctx context.Context, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[jobID] = message
	return nil
}

type stubPackages struct {
	mu    sync.Mutex
	saved []*domain.AssetPackage
	err   error
}

func (s *stubPackages) Save(ctx context.Context, pkg *domain.AssetPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, pkg)
	return nil
}

func (s *stubPackages) GetByID(ctx context.Context, id string) (*domain.AssetPackage, error) {
	return nil, domain.ErrNotFound
}

type stubSources map[string][]byte

func (s stubSources) Read(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s[key]; ok {
		return data, nil
	}
	return nil, domain.ErrNotFound
}

type stubGenerator struct {
	mu   sync.Mutex
	raws [][]byte
	err  error
}

func (g *stubGenerator) GenerateCompletePackage(ctx context.Context, raw []byte, meta domain.SourceMetadata, timeout time.Duration) (*domain.AssetPackage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.raws = append(g.raws, raw)
	if g.err != nil {
		return nil, g.err
	}
	return &domain.AssetPackage{ID: "pkg-" + meta.BrandName, Metadata: meta}, nil
}

func newWorker(t *testing.T, jobs *stubJobs, packages *stubPackages, gen *stubGenerator) *Worker {
	t.Helper()
	w, err := New(Options{
		Jobs:         jobs,
		Packages:     packages,
		Sources:      stubSources{"uploads/a.png": []byte("png-bytes")},
		Generator:    gen,
		Logger:       zerolog.Nop(),
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return w
}

func TestProcessNextUsesStoredSource(t *testing.T) {
	jobs := newStubJobs(&domain.PackageJob{ID: "j1", SourceKey: "uploads/a.png", Metadata: domain.SourceMetadata{BrandName: "A"}})
	packages := &stubPackages{}
	gen := &stubGenerator{}
	w := newWorker(t, jobs, packages, gen)

	processed, err := w.ProcessNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []byte("png-bytes"), gen.raws[0])
	require.Equal(t, "pkg-A", jobs.succeeded["j1"])
	require.Len(t, packages.saved, 1)
}

func TestProcessNextSynthesizesMissingSource(t *testing.T) {
	jobs := newStubJobs(&domain.PackageJob{ID: "j2", Metadata: domain.SourceMetadata{BrandName: "B"}})
	gen := &stubGenerator{}
	w := newWorker(t, jobs, &stubPackages{}, gen)

	_, err := w.ProcessNext(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG"), gen.raws[0][:4])
	require.Equal(t, "pkg-B", jobs.succeeded["j2"])
}

func TestProcessNextMarksFailures(t *testing.T) {
	jobs := newStubJobs(
		&domain.PackageJob{ID: "fatal", SourceKey: "uploads/a.png"},
		&domain.PackageJob{ID: "missing", SourceKey: "uploads/none.png"},
	)
	gen := &stubGenerator{err: domain.NewFatal("decode source", domain.ErrMissingAlpha)}
	w := newWorker(t, jobs, &stubPackages{}, gen)

	for i := 0; i < 2; i++ {
		_, err := w.ProcessNext(context.Background())
		require.NoError(t, err)
	}
	require.Contains(t, jobs.failed["fatal"], "alpha")
	require.Contains(t, jobs.failed["missing"], "uploads/none.png")
	require.Empty(t, jobs.succeeded)
}

func TestProcessNextMarksSaveFailure(t *testing.T) {
	jobs := newStubJobs(&domain.PackageJob{ID: "j3", SourceKey: "uploads/a.png"})
	w := newWorker(t, jobs, &stubPackages{err: errors.New("db down")}, &stubGenerator{})

	_, err := w.ProcessNext(context.Background())
	require.NoError(t, err)
	require.Contains(t, jobs.failed["j3"], "db down")
}

func TestProcessNextEmptyQueue(t *testing.T) {
	w := newWorker(t, newStubJobs(), &stubPackages{}, &stubGenerator{})
	processed, err := w.ProcessNext(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestRunDrainsQueueUntilCanceled(t *testing.T) {
	jobs := newStubJobs(
		&domain.PackageJob{ID: "r1", SourceKey: "uploads/a.png", Metadata: domain.SourceMetadata{BrandName: "R1"}},
		&domain.PackageJob{ID: "r2", SourceKey: "uploads/a.png", Metadata: domain.SourceMetadata{BrandName: "R2"}},
	)
	w := newWorker(t, jobs, &stubPackages{}, &stubGenerator{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		jobs.mu.Lock()
		defer jobs.mu.Unlock()
		return len(jobs.succeeded) == 2
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
