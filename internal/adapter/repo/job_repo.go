package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"logoforge/internal/domain"
	"logoforge/internal/infra"
	"logoforge/internal/sqlinline"
)

const maxErrorMessage = 1024

// JobRepositoryPG implements domain.JobRepository over the package_jobs table.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Enqueue inserts a QUEUED job and returns its id.
func (r *JobRepositoryPG) Enqueue(ctx context.Context, meta domain.SourceMetadata, sourceKey string) (string, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QEnqueuePackageJob, raw, sourceKey).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// Claim moves the oldest QUEUED job to RUNNING. Concurrent workers never
// claim the same row.
func (r *JobRepositoryPG) Claim(ctx context.Context) (*domain.PackageJob, error) {
	var (
		job  domain.PackageJob
		meta []byte
	)
	err := r.sql.QueryRow(ctx, sqlinline.QClaimPackageJob).Scan(
		&job.ID,
		&job.Status,
		&meta,
		&job.SourceKey,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode job %s metadata: %w", job.ID, err)
		}
	}
	return &job, nil
}

// MarkSucceeded links the job to the package it produced.
func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, jobID, packageID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkPackageJobSucceeded, jobID, packageID)
	return err
}

// MarkFailed records the failure message, truncated to fit the column budget.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, message string) error {
	message = strings.TrimSpace(message)
	if len(message) > maxErrorMessage {
		message = message[:maxErrorMessage]
	}
	_, err := r.sql.Exec(ctx, sqlinline.QMarkPackageJobFailed, jobID, message)
	return err
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
