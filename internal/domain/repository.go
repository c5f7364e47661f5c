package domain

import "context"

// PackageRepository persists finished asset packages.
type PackageRepository interface {
	Save(ctx context.Context, pkg *AssetPackage) error
	GetByID(ctx context.Context, id string) (*AssetPackage, error)
}

// JobRepository coordinates queued package jobs. Claim returns ErrNotFound
// when the queue is empty.
type JobRepository interface {
	Enqueue(ctx context.Context, meta SourceMetadata, sourceKey string) (string, error)
	Claim(ctx context.Context) (*PackageJob, error)
	MarkSucceeded(ctx context.Context, jobID, packageID string) error
	MarkFailed(ctx context.Context, jobID, message string) error
}
