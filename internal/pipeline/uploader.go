package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"logoforge/internal/domain"
	"logoforge/internal/storage"
)

// DefaultMaxUploads bounds in-flight uploads when no limit is configured.
const DefaultMaxUploads = 4

// boundedUploader caps concurrent uploads and retries a failed upload once.
// Keys are content derived, so a retry rewrites the same object.
type boundedUploader struct {
	next   storage.Uploader
	sem    *semaphore.Weighted
	logger zerolog.Logger
}

func newBoundedUploader(next storage.Uploader, limit int, logger zerolog.Logger) *boundedUploader {
	if limit <= 0 {
		limit = DefaultMaxUploads
	}
	return &boundedUploader{next: next, sem: semaphore.NewWeighted(int64(limit)), logger: logger}
}

func (u *boundedUploader) upload(ctx context.Context, data []byte, opts storage.UploadOptions) (string, error) {
	if err := u.sem.Acquire(ctx, 1); err != nil {
		return "", contextFailure(err, "upload "+opts.Key)
	}
	defer u.sem.Release(1)

	url, err := u.next.UploadBuffer(ctx, data, opts)
	if err == nil {
		return url, nil
	}
	if ctx.Err() != nil {
		return "", contextFailure(ctx.Err(), "upload "+opts.Key)
	}
	u.logger.Warn().Err(err).Str("key", opts.Key).Msg("pipeline: upload failed, retrying once")
	url, err = u.next.UploadBuffer(ctx, data, opts)
	if err == nil {
		return url, nil
	}
	if ctx.Err() != nil {
		return "", contextFailure(ctx.Err(), "upload "+opts.Key)
	}
	var storageErr *domain.StorageError
	if !errors.As(err, &storageErr) {
		err = &domain.StorageError{Key: opts.Key, Err: err}
	}
	return "", err
}

func contextFailure(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Op: op}
	}
	return err
}
