package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidSource = errors.New("invalid source image")
	ErrMissingAlpha  = errors.New("source image has no alpha channel")
	ErrEmptyPackage  = errors.New("no artifact succeeded")
	ErrDependency    = errors.New("dependency not satisfied")
	ErrTimeout       = errors.New("timed out")
	ErrStorage       = errors.New("storage failure")
)

// FatalError aborts a whole package generation call. It is the only error
// returned by the orchestrator.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return "fatal: " + e.Reason
	}
	return fmt.Sprintf("fatal: %s: %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// NewFatal wraps err as a FatalError.
func NewFatal(reason string, err error) *FatalError {
	return &FatalError{Reason: reason, Err: err}
}

// IsFatal reports whether err carries a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// TimeoutError marks an external tool or deadline expiry. It is recoverable.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
	}
	return fmt.Sprintf("%s timed out", e.Op)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// DependencyError explains why an artifact was skipped rather than attempted.
type DependencyError struct {
	Artifact ArtifactID
	Requires ArtifactID
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s skipped: requires %s", e.Artifact, e.Requires)
}

func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

// StorageError is returned by uploaders when a buffer could not be stored.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: upload %q: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
