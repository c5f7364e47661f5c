package domain

import "time"

// JobStatus enumerates package job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// PackageJob is a queued request for a complete asset package.
type PackageJob struct {
	ID           string
	Status       JobStatus
	Metadata     SourceMetadata
	SourceKey    string
	PackageID    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
